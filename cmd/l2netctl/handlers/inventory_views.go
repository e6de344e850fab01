package handlers

import (
	"context"
	"strconv"

	"github.com/imamik/l2net/internal/config"
)

// SwitchView is one registered switch with its pool usage.
type SwitchView struct {
	Node   string `json:"node" yaml:"node"`
	IP     string `json:"ip,omitempty" yaml:"ip,omitempty"`
	Device string `json:"device,omitempty" yaml:"device,omitempty"`
	Free   int    `json:"free" yaml:"free"`
	Total  int    `json:"total" yaml:"total"`
}

// InterfaceView is one interface and its binding.
type InterfaceView struct {
	Node      string `json:"node" yaml:"node"`
	Interface string `json:"interface" yaml:"interface"`
	Network   string `json:"network,omitempty" yaml:"network,omitempty"`
	Pod       string `json:"pod,omitempty" yaml:"pod,omitempty"`
}

// NetworkView is one registered network and how many interfaces it holds.
type NetworkView struct {
	Name  string `json:"name" yaml:"name"`
	Type  string `json:"type" yaml:"type"`
	Bound int    `json:"boundInterfaces" yaml:"boundInterfaces"`
}

// Switches lists registered switches.
func Switches(ctx context.Context, configPath, format string) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}
	return withInventory(configPath, func(_ *config.Operator, inv Inventory) error {
		views, err := switchViews(ctx, inv)
		if err != nil {
			return err
		}
		tbl := &table{headers: []string{"NODE", "IP", "DEVICE", "FREE", "TOTAL"}}
		for _, v := range views {
			tbl.add(v.Node, dash(v.IP), dash(v.Device), strconv.Itoa(v.Free), strconv.Itoa(v.Total))
		}
		return write(format, views, tbl)
	})
}

// Interfaces lists interfaces, optionally limited to one node.
func Interfaces(ctx context.Context, configPath, format, node string) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}
	return withInventory(configPath, func(_ *config.Operator, inv Inventory) error {
		rows, err := inv.ListInterfaces(ctx, node)
		if err != nil {
			return err
		}
		views := make([]InterfaceView, 0, len(rows))
		tbl := &table{headers: []string{"NODE", "INTERFACE", "NETWORK", "POD"}}
		for _, r := range rows {
			v := InterfaceView{Node: r.NodeName, Interface: r.Name, Network: r.NetworkName.String, Pod: r.Pod.String}
			views = append(views, v)
			tbl.add(v.Node, v.Interface, dash(v.Network), dash(v.Pod))
		}
		return write(format, views, tbl)
	})
}

// Networks lists registered networks.
func Networks(ctx context.Context, configPath, format string) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}
	return withInventory(configPath, func(_ *config.Operator, inv Inventory) error {
		networks, err := inv.ListNetworks(ctx)
		if err != nil {
			return err
		}
		rows, err := inv.ListInterfaces(ctx, "")
		if err != nil {
			return err
		}
		bound := make(map[string]int)
		for _, r := range rows {
			if r.NetworkName.Valid {
				bound[r.NetworkName.String]++
			}
		}

		views := make([]NetworkView, 0, len(networks))
		tbl := &table{headers: []string{"NAME", "TYPE", "BOUND"}}
		for _, n := range networks {
			v := NetworkView{Name: n.Name, Type: n.Type, Bound: bound[n.Name]}
			views = append(views, v)
			tbl.add(v.Name, v.Type, strconv.Itoa(v.Bound))
		}
		return write(format, views, tbl)
	})
}

// switchViews joins switches with their interface counts.
func switchViews(ctx context.Context, inv Inventory) ([]SwitchView, error) {
	switches, err := inv.ListSwitches(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := inv.ListInterfaces(ctx, "")
	if err != nil {
		return nil, err
	}
	total := make(map[string]int)
	free := make(map[string]int)
	for _, r := range rows {
		total[r.NodeName]++
		if !r.NetworkName.Valid && !r.Pod.Valid {
			free[r.NodeName]++
		}
	}

	views := make([]SwitchView, 0, len(switches))
	for _, sw := range switches {
		v := SwitchView{Node: sw.NodeName, Free: free[sw.NodeName], Total: total[sw.NodeName]}
		v.IP, _ = sw.Address()
		v.Device, _ = sw.DeviceID()
		views = append(views, v)
	}
	return views, nil
}
