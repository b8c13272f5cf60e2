// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jeranaias/zhai-tui/internal/chatapi"
	"github.com/jeranaias/zhai-tui/internal/config"
	"github.com/jeranaias/zhai-tui/internal/fallback"
	"github.com/jeranaias/zhai-tui/internal/session"
	"github.com/jeranaias/zhai-tui/internal/storage"
)

// healthResult is the --json shape of zhai health.
type healthResult struct {
	URL     string `json:"url"`
	Status  string `json:"status"`
	Service string `json:"service"`
	Healthy bool   `json:"healthy"`
}

// addHealthCommand adds health and doctor.
func (app *App) addHealthCommand(root *cobra.Command) {
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := app.loadConfig()
			if err != nil {
				return err
			}
			client := chatapi.NewClientWithConfig(&chatapi.ClientConfig{
				BaseURL: cfg.Server.BaseURL,
				Timeout: cfg.Server.TimeoutDuration(),
			})

			h, err := client.Health(cmd.Context())
			if err != nil {
				return err
			}
			res := healthResult{URL: client.BaseURL(), Status: h.Status, Service: h.Service, Healthy: h.Healthy()}

			if app.Opts.JSON {
				resp := NewJSONResponse("health", res)
				if !res.Healthy {
					msg := fmt.Sprintf("backend reports status %q", h.Status)
					resp.Success = false
					resp.Error = &msg
				}
				if err := resp.Print(app.Out); err != nil {
					return err
				}
				if !res.Healthy {
					return &reportedError{errUnhealthy}
				}
				return nil
			}

			fmt.Fprintln(app.Out, RenderField("backend", res.URL))
			fmt.Fprintln(app.Out, RenderField("service", res.Service))
			fmt.Fprintln(app.Out, RenderField("status", RenderStatus(res.Status)+" "+res.Status))
			if !res.Healthy {
				return errUnhealthy
			}
			return nil
		},
	}

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration, storage and backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runDoctor(cmd.Context())
		},
	}

	root.AddCommand(healthCmd, doctorCmd)
}

// errUnhealthy is returned when the backend answers with a status other
// than "healthy".
var errUnhealthy = &chatapi.ClientError{Type: chatapi.ErrTypeRemoteError, Message: "backend is not healthy"}

// =============================================================================
// DOCTOR
// =============================================================================

// CheckStatus is the outcome of one doctor check.
type CheckStatus int

const (
	CheckPass CheckStatus = iota
	CheckWarn
	CheckFail
)

// String returns the lower case name used in JSON output.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarn:
		return "warn"
	case CheckFail:
		return "fail"
	default:
		return "unknown"
	}
}

var fixStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true).PaddingLeft(2)

// DoctorCheck is one diagnostic result.
type DoctorCheck struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"-"`
	State   string      `json:"status"`
	Message string      `json:"message"`
	Fix     string      `json:"fix,omitempty"`
}

// Render formats the check as one line, plus the fix when it did not pass.
func (c *DoctorCheck) Render() string {
	result := fmt.Sprintf("%s %s", RenderStatus(c.Status.String()), c.Message)
	if c.Status != CheckPass && c.Fix != "" {
		result += "\n" + fixStyle.Render("-> "+c.Fix)
	}
	return result
}

// DoctorSummary counts the outcomes.
type DoctorSummary struct {
	Passed  int  `json:"passed"`
	Warned  int  `json:"warned"`
	Failed  int  `json:"failed"`
	Healthy bool `json:"healthy"`
}

func (app *App) runDoctor(ctx context.Context) error {
	checks := app.doctorChecks(ctx)

	var sum DoctorSummary
	for _, c := range checks {
		c.State = c.Status.String()
		switch c.Status {
		case CheckPass:
			sum.Passed++
		case CheckWarn:
			sum.Warned++
		case CheckFail:
			sum.Failed++
		}
	}
	sum.Healthy = sum.Failed == 0

	var failErr error
	if sum.Failed > 0 {
		failErr = fmt.Errorf("%d check(s) failed", sum.Failed)
	}

	if app.Opts.JSON {
		resp := NewJSONResponse("doctor", struct {
			Checks  []*DoctorCheck `json:"checks"`
			Summary DoctorSummary  `json:"summary"`
		}{checks, sum})
		if failErr != nil {
			msg := failErr.Error()
			resp.Success = false
			resp.Error = &msg
		}
		if err := resp.Print(app.Out); err != nil {
			return err
		}
		if failErr != nil {
			return &reportedError{failErr}
		}
		return nil
	}

	fmt.Fprintln(app.Out, TitleStyle.Render("zhai doctor"))
	fmt.Fprintln(app.Out, DimStyle.Render(strings.Repeat("=", 41)))
	for _, c := range checks {
		fmt.Fprintln(app.Out, c.Render())
	}
	fmt.Fprintln(app.Out, DimStyle.Render(strings.Repeat("-", 41)))

	parts := []string{fmt.Sprintf("%d passed", sum.Passed)}
	if sum.Warned > 0 {
		parts = append(parts, WarningStyle.Render(fmt.Sprintf("%d warning", sum.Warned)))
	}
	if sum.Failed > 0 {
		parts = append(parts, ErrorStyle.Render(fmt.Sprintf("%d failed", sum.Failed)))
	}
	fmt.Fprintln(app.Out, strings.Join(parts, ", "))
	return failErr
}

// doctorChecks runs every check. A config that does not load stops the
// rest, they all depend on it.
func (app *App) doctorChecks(ctx context.Context) []*DoctorCheck {
	cfg, path, err := app.loadConfig()
	if err != nil {
		return []*DoctorCheck{{
			Name:    "config",
			Status:  CheckFail,
			Message: "Config invalid: " + err.Error(),
			Fix:     "Run: zhai config init --force",
		}}
	}
	checks := []*DoctorCheck{{Name: "config", Status: CheckPass, Message: "Config valid (" + path + ")"}}

	client := chatapi.NewClientWithConfig(&chatapi.ClientConfig{
		BaseURL: cfg.Server.BaseURL,
		Timeout: cfg.Server.TimeoutDuration(),
	})
	checks = append(checks, checkBackend(ctx, client))
	checks = append(checks, checkStorage(ctx, cfg, client)...)
	checks = append(checks, checkFallback(cfg.Fallback))
	return checks
}

func checkBackend(ctx context.Context, client *chatapi.Client) *DoctorCheck {
	check := &DoctorCheck{Name: "backend"}
	h, err := client.Health(ctx)
	switch {
	case err != nil:
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Backend unreachable at %s: %s", client.BaseURL(), err)
		check.Fix = "Check server.base_url or pass --url"
	case !h.Healthy():
		check.Status = CheckWarn
		check.Message = fmt.Sprintf("Backend reports status %q", h.Status)
	default:
		check.Status = CheckPass
		check.Message = fmt.Sprintf("Backend healthy (%s)", h.Service)
	}
	return check
}

// checkStorage opens the session backend and reports the saved session.
func checkStorage(ctx context.Context, cfg *config.Config, client *chatapi.Client) []*DoctorCheck {
	backend := cfg.Storage.Backend
	if backend == "" {
		backend = storage.BackendFile
	}
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return []*DoctorCheck{{
			Name:    "storage",
			Status:  CheckFail,
			Message: fmt.Sprintf("Cannot open %s storage: %s", backend, err),
			Fix:     "Check the [storage] section of the config",
		}}
	}
	defer store.Close()
	checks := []*DoctorCheck{{Name: "storage", Status: CheckPass, Message: "Session storage: " + backend}}

	sess := &DoctorCheck{Name: "session"}
	if s, ok := session.NewStore(store, client, session.Options{}).Restore(ctx); ok {
		sess.Status = CheckPass
		sess.Message = "Logged in as " + s.UserName
	} else {
		sess.Status = CheckWarn
		sess.Message = "No saved session"
		sess.Fix = "Run: zhai login <username>"
	}
	return append(checks, sess)
}

func checkFallback(cfg config.FallbackConfig) *DoctorCheck {
	check := &DoctorCheck{Name: "fallback"}
	r, err := fallback.New(cfg)
	switch {
	case err != nil:
		check.Status = CheckFail
		check.Message = "Fallback unusable: " + err.Error()
		check.Fix = "Fix [fallback] or set mode = \"apology\""
	case r == nil:
		check.Status = CheckWarn
		check.Message = "Strict mode: failures are shown as errors"
	default:
		check.Status = CheckPass
		mode := strings.ToLower(cfg.Mode)
		if mode == "" {
			mode = fallback.ModeApology
		}
		check.Message = "Fallback replies: " + mode
	}
	return check
}
