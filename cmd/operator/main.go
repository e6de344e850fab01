// Package main is the entrypoint for the l2net-operator.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	l2netv1alpha1 "github.com/imamik/l2net/api/v1alpha1"
	"github.com/imamik/l2net/internal/config"
	"github.com/imamik/l2net/internal/k8s"
	"github.com/imamik/l2net/internal/operator/controller"
	"github.com/imamik/l2net/internal/operator/dispatch"
	"github.com/imamik/l2net/internal/platform/sdn"
	"github.com/imamik/l2net/internal/store"
	"github.com/imamik/l2net/internal/util/retry"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")

	// Version is set at build time
	Version = "dev"
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(l2netv1alpha1.AddToScheme(scheme))
}

func main() {
	var (
		metricsAddr          string
		probeAddr            string
		enableLeaderElection bool
		leaderElectionID     string
		configPath           string
		migrate              bool
	)

	flag.StringVar(&metricsAddr, "metrics-bind-address", ":8080", "The address the metric endpoint binds to.")
	flag.StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	flag.BoolVar(&enableLeaderElection, "leader-elect", true, "Enable leader election for controller manager.")
	flag.StringVar(&leaderElectionID, "leader-election-id", "l2net-operator", "The name of the leader election resource.")
	flag.StringVar(&configPath, "config", "", "Optional YAML configuration file. Environment variables take precedence.")
	flag.BoolVar(&migrate, "migrate", false, "Apply the database schema before starting.")

	opts := zap.Options{
		Development: os.Getenv("DEBUG") == "true",
	}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	setupLog.Info("starting l2net-operator", "version", Version)

	cfg, err := config.Load(configPath)
	if err != nil {
		setupLog.Error(err, "unable to load configuration")
		os.Exit(1)
	}

	ctx := ctrl.SetupSignalHandler()

	st, err := store.Open(cfg.StoreConfig())
	if err != nil {
		setupLog.Error(err, "unable to open database")
		os.Exit(1)
	}
	if err := waitForDatabase(ctx, st, cfg.Timeouts.DBConnect.Duration); err != nil {
		setupLog.Error(err, "database unreachable", "host", cfg.Database.Host, "database", cfg.Database.Name)
		os.Exit(1)
	}
	if migrate {
		if err := st.Migrate(ctx); err != nil {
			setupLog.Error(err, "unable to apply database schema")
			os.Exit(1)
		}
		setupLog.Info("database schema applied")
	}

	// The operator cannot do anything useful without the SDN controller.
	gw, err := sdn.Connect(ctx, cfg.SDNConfig())
	if err != nil {
		setupLog.Error(err, "unable to reach SDN controller", "url", cfg.ControllerURL())
		os.Exit(1)
	}
	setupLog.Info("connected to SDN controller", "url", cfg.ControllerURL())

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme: scheme,
		Metrics: metricsserver.Options{
			BindAddress: metricsAddr,
		},
		HealthProbeBindAddress: probeAddr,
		LeaderElection:         enableLeaderElection,
		LeaderElectionID:       leaderElectionID,
		// LeaderElectionReleaseOnCancel defines if the leader should step down voluntarily
		// when the Manager ends. This requires the binary to immediately end when the
		// Manager is stopped, otherwise, this setting is unsafe.
		LeaderElectionReleaseOnCancel: true,
	})
	if err != nil {
		setupLog.Error(err, "unable to create manager")
		os.Exit(1)
	}

	engine := controller.NewEngine(st, gw, k8s.NewClient(mgr.GetClient()),
		controller.WithInterfacesPerSwitch(cfg.InterfacesPerSwitch),
		controller.WithRequeueDelays(cfg.Timeouts.UnscheduledRequeue.Duration, cfg.Timeouts.SwitchUnconnectedRequeue.Duration),
	)
	table, err := engine.Table()
	if err != nil {
		setupLog.Error(err, "invalid dispatch table")
		os.Exit(1)
	}

	if err = dispatch.New(table,
		mgr.GetEventRecorderFor("l2net-operator"),
		dispatch.WithWorkers(cfg.Workers),
	).SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "l2net-dispatcher")
		os.Exit(1)
	}

	// Add health checks
	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		os.Exit(1)
	}
	if err := mgr.AddReadyzCheck("database", func(req *http.Request) error {
		return st.Ping(req.Context())
	}); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		os.Exit(1)
	}

	setupLog.Info("starting manager", "workers", cfg.Workers, "interfacesPerSwitch", cfg.InterfacesPerSwitch)
	if err := mgr.Start(ctx); err != nil {
		setupLog.Error(err, "problem running manager")
		_ = st.Close()
		os.Exit(1)
	}
	_ = st.Close()
}

// waitForDatabase pings the store until it answers or timeout passes.
// Rejected credentials end the wait at once.
func waitForDatabase(ctx context.Context, st *store.MySQL, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return retry.Do(ctx, func(ctx context.Context) error {
		err := st.Ping(ctx)
		if store.IsAccessDenied(err) {
			return retry.Permanent(err)
		}
		return err
	},
		retry.WithMaxAttempts(1<<10),
		retry.WithNotify(func(attempt int, next time.Duration, err error) {
			setupLog.Info("waiting for database", "attempt", attempt, "retryIn", next.String(), "error", err.Error())
		}),
	)
}
