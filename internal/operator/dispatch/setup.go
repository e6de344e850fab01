package dispatch

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/util/workqueue"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/l2net/api/v1alpha1"
)

type queue = workqueue.TypedRateLimitingInterface[Request]

// +kubebuilder:rbac:groups=l2net.io,resources=l2networks,verbs=get;list;watch
// +kubebuilder:rbac:groups=l2net.io,resources=l2networks/status,verbs=get;update;patch
// +kubebuilder:rbac:groups="",resources=pods,verbs=get;list;watch;patch
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch

// SetupWithManager registers the dispatcher as a controller watching every
// kind named in the table.
func (d *Dispatcher) SetupWithManager(mgr ctrl.Manager) error {
	b := builder.TypedControllerManagedBy[Request](mgr).
		Named("l2net-dispatcher").
		WithOptions(controller.TypedOptions[Request]{
			MaxConcurrentReconciles: d.workers,
			RateLimiter:             workqueue.NewTypedItemExponentialFailureRateLimiter[Request](d.baseDelay, d.maxDelay),
		})

	for _, kind := range d.table.Kinds() {
		obj, err := objectFor(kind)
		if err != nil {
			return err
		}
		b = b.Watches(obj, d.eventHandler(kind))
	}

	return b.Complete(d)
}

func objectFor(kind Kind) (client.Object, error) {
	switch kind {
	case KindPod:
		return &corev1.Pod{}, nil
	case KindNetwork:
		return &v1alpha1.L2Network{}, nil
	default:
		return nil, fmt.Errorf("unsupported kind %q", kind)
	}
}

// eventHandler turns watch notifications for kind into one Request per matching route.
func (d *Dispatcher) eventHandler(kind Kind) handler.TypedEventHandler[client.Object, Request] {
	return &handler.TypedFuncs[client.Object, Request]{
		CreateFunc: func(ctx context.Context, e event.TypedCreateEvent[client.Object], q queue) {
			d.Enqueue(ctx, kind, Event{Type: EventCreate, Object: e.Object}, q)
		},
		UpdateFunc: func(ctx context.Context, e event.TypedUpdateEvent[client.Object], q queue) {
			d.Enqueue(ctx, kind, Event{Type: EventUpdate, Object: e.ObjectNew, Old: e.ObjectOld}, q)
		},
		DeleteFunc: func(ctx context.Context, e event.TypedDeleteEvent[client.Object], q queue) {
			d.Enqueue(ctx, kind, Event{Type: EventDelete, Object: e.Object}, q)
		},
	}
}

// Enqueue adds one Request per route accepting ev.
func (d *Dispatcher) Enqueue(ctx context.Context, kind Kind, ev Event, q workqueue.TypedInterface[Request]) {
	if ev.Object == nil {
		return
	}
	for _, name := range d.table.Match(kind, ev) {
		log.FromContext(ctx).V(2).Info("dispatching event",
			"route", name, "event", ev.Type, "object", client.ObjectKeyFromObject(ev.Object))
		q.Add(Request{Route: name, Event: ev})
	}
}
