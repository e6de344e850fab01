package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	nettypes "github.com/k8snetworkplumbingwg/network-attachment-definition-client/pkg/apis/k8s.cni.cncf.io/v1"

	"github.com/imamik/l2net/internal/store"
)

// errMalformedRequest marks an attachment annotation that can never be parsed.
var errMalformedRequest = errors.New("malformed network attachment annotation")

// parseNetworkRequest parses an attachment annotation into an ordered list of
// requested networks. Two forms are accepted: a comma separated list of names
// ("a, b") and a JSON array of {"name", "ips"} objects.
func parseNetworkRequest(value string) ([]*nettypes.NetworkSelectionElement, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		var elements []*nettypes.NetworkSelectionElement
		if err := json.Unmarshal([]byte(trimmed), &elements); err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformedRequest, err)
		}
		for i, el := range elements {
			if el == nil || strings.TrimSpace(el.Name) == "" {
				return nil, fmt.Errorf("%w: element %d has no name", errMalformedRequest, i)
			}
			el.Name = strings.TrimSpace(el.Name)
		}
		return elements, nil
	}

	var elements []*nettypes.NetworkSelectionElement
	for _, name := range strings.Split(trimmed, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		elements = append(elements, &nettypes.NetworkSelectionElement{Name: name})
	}
	return elements, nil
}

// multusAnnotation renders the resolved interfaces in the format the CNI
// meta-plugin consumes. Entries already present in existing that do not name
// one of the bound interfaces are kept in front.
func multusAnnotation(existing string, bindings []store.Binding, requests []*nettypes.NetworkSelectionElement) (string, error) {
	bound := make(map[string]bool, len(bindings))
	for _, b := range bindings {
		bound[b.InterfaceName] = true
	}

	var out []*nettypes.NetworkSelectionElement
	if prior, err := parseNetworkRequest(existing); err == nil {
		for _, el := range prior {
			if !bound[el.Name] {
				out = append(out, el)
			}
		}
	}

	for i, b := range bindings {
		el := &nettypes.NetworkSelectionElement{Name: b.InterfaceName}
		if i < len(requests) && requests[i] != nil {
			el.IPRequest = requests[i].IPRequest
		}
		out = append(out, el)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode interface assignment: %w", err)
	}
	return string(data), nil
}

// interfacesAnnotation records network=interface pairs in binding order.
func interfacesAnnotation(bindings []store.Binding) string {
	pairs := make([]string, 0, len(bindings))
	for _, b := range bindings {
		pairs = append(pairs, b.NetworkName+"="+b.InterfaceName)
	}
	return strings.Join(pairs, ",")
}
