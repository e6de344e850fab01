package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/imamik/l2net/internal/config"
	"github.com/imamik/l2net/internal/ui/tui"
)

// Check is the result of one connectivity check.
type Check struct {
	Name    string `json:"name" yaml:"name"`
	Target  string `json:"target" yaml:"target"`
	OK      bool   `json:"ok" yaml:"ok"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
	Latency string `json:"latency" yaml:"latency"`
}

// StatusReport summarizes dependency health and pool usage.
type StatusReport struct {
	Checks   []Check      `json:"checks" yaml:"checks"`
	Switches []SwitchView `json:"switches" yaml:"switches"`
	Networks int          `json:"networks" yaml:"networks"`
}

// Healthy reports whether every check passed.
func (r *StatusReport) Healthy() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

// Status checks the database and the SDN controller concurrently and reports
// the free interfaces of every node. It fails when a check fails, after
// printing the report.
func Status(ctx context.Context, configPath, format string, timeout time.Duration) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}
	return withInventory(configPath, func(cfg *config.Operator, inv Inventory) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		report, err := buildStatus(ctx, cfg, inv)
		if err != nil {
			return err
		}
		if err := write(format, report, statusTable(report)); err != nil {
			return err
		}
		if !report.Healthy() {
			return fmt.Errorf("one or more checks failed")
		}
		return nil
	})
}

func buildStatus(ctx context.Context, cfg *config.Operator, inv Inventory) (*StatusReport, error) {
	report := &StatusReport{
		Checks: []Check{
			{Name: "database", Target: fmt.Sprintf("%s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)},
			{Name: "sdn-controller", Target: cfg.ControllerURL()},
		},
	}
	probes := []func(context.Context) error{
		inv.Ping,
		newProber(cfg).Probe,
	}

	// Checks record their failure instead of cancelling the group.
	g, gctx := errgroup.WithContext(ctx)
	for i, probe := range probes {
		g.Go(func() error {
			start := time.Now()
			err := probe(gctx)
			report.Checks[i].Latency = time.Since(start).Round(time.Millisecond).String()
			report.Checks[i].OK = err == nil
			if err != nil {
				report.Checks[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	if !report.Checks[0].OK {
		return report, nil
	}

	switches, err := switchViews(ctx, inv)
	if err != nil {
		return nil, err
	}
	networks, err := inv.ListNetworks(ctx)
	if err != nil {
		return nil, err
	}
	report.Switches = switches
	report.Networks = len(networks)
	return report, nil
}

func statusTable(r *StatusReport) *table {
	tbl := &table{headers: []string{"CHECK", "TARGET", "STATUS", "LATENCY"}}
	for _, c := range r.Checks {
		status := "ok"
		if !c.OK {
			status = "FAILED: " + c.Error
			if isInteractiveTTY() {
				status = redStyle.Render(status)
			}
		}
		tbl.add(c.Name, c.Target, status, dash(c.Latency))
	}
	if len(r.Switches) == 0 {
		return tbl
	}
	free := make([]string, 0, len(r.Switches))
	for _, sw := range r.Switches {
		free = append(free, sw.Node+"="+strconv.Itoa(sw.Free)+"/"+strconv.Itoa(sw.Total))
	}
	tbl.add("free interfaces", strings.Join(free, " "), "", "")
	tbl.add("networks", strconv.Itoa(r.Networks), "", "")
	return tbl
}

// StatusWatch shows a live dashboard of Status, refreshed every interval.
func StatusWatch(ctx context.Context, configPath string, interval time.Duration) error {
	if !isInteractiveTTY() {
		return fmt.Errorf("--watch requires an interactive terminal")
	}
	return withInventory(configPath, func(cfg *config.Operator, inv Inventory) error {
		return tui.RunStatusWatch(ctx, "l2net "+cfg.Database.Host, interval, func(ctx context.Context) tui.StatusMsg {
			report, err := buildStatus(ctx, cfg, inv)
			if err != nil {
				return tui.StatusMsg{FetchErr: err.Error()}
			}
			return statusMsg(report)
		})
	})
}

func statusMsg(r *StatusReport) tui.StatusMsg {
	msg := tui.StatusMsg{Networks: r.Networks}
	for _, c := range r.Checks {
		msg.Checks = append(msg.Checks, tui.Check{Name: c.Name, Target: c.Target, OK: c.OK, Err: c.Error, Latency: c.Latency})
	}
	for _, sw := range r.Switches {
		msg.Nodes = append(msg.Nodes, tui.NodeUsage{Node: sw.Node, Free: sw.Free, Total: sw.Total})
	}
	return msg
}
