package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Jasminestrone/MiataMaestro/internal/progress"
)

const (
	emailSelector     = `input[name="email"]`
	passwordSelector  = `input[name="pass"]`
	loginSelector     = `button[name="login"]`
	twoFactorSelector = `input[name="approvals_code"]`
)

// login authenticates tab unless the browsing context already is.
func (c *Controller) login(ctx context.Context, session string, tab Tab) error {
	loginURL := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/login"
	if err := c.navigate(ctx, tab, loginURL, c.cfg.LoginTimeout); err != nil {
		return err
	}
	if err := c.pacer.Pause(ctx, time.Second, 2*time.Second); err != nil {
		return err
	}

	current, err := tab.Location(ctx)
	if err != nil {
		return fmt.Errorf("failed to read location: %w", err)
	}
	if !strings.Contains(current, "login") {
		slog.Info("Already logged in", "url", current)
		return nil
	}

	if c.cfg.Email == "" || c.cfg.Password == "" {
		return &AuthenticationError{Reason: "login required but no credentials configured", URL: current}
	}

	slog.Info("Logging in", "url", current)
	if err := tab.WaitVisible(ctx, emailSelector, c.cfg.InputTimeout); err != nil {
		return &AuthenticationError{Reason: "login form not found", URL: current, Err: err}
	}
	if err := c.humanType(ctx, tab, emailSelector, c.cfg.Email); err != nil {
		return &AuthenticationError{Reason: "could not enter email", URL: current, Err: err}
	}
	if err := c.pacer.Pause(ctx, 200*time.Millisecond, 400*time.Millisecond); err != nil {
		return err
	}
	if err := c.humanType(ctx, tab, passwordSelector, c.cfg.Password); err != nil {
		return &AuthenticationError{Reason: "could not enter password", URL: current, Err: err}
	}
	if err := c.pacer.Pause(ctx, 50*time.Millisecond, 100*time.Millisecond); err != nil {
		return err
	}
	if err := tab.ClickAndWait(ctx, loginSelector, c.cfg.SubmitTimeout); err != nil {
		return &AuthenticationError{Reason: "login submission failed", URL: current, Err: err}
	}
	if err := c.pacer.Pause(ctx, 100*time.Millisecond, 200*time.Millisecond); err != nil {
		return err
	}

	postLogin, err := tab.Location(ctx)
	if err != nil {
		return fmt.Errorf("failed to read location: %w", err)
	}
	if n, err := tab.Count(ctx, twoFactorSelector); err == nil && n > 0 {
		return &AuthenticationError{Reason: "two-factor authentication required", URL: postLogin}
	}
	if strings.Contains(postLogin, "login") || strings.Contains(postLogin, "checkpoint") {
		return &AuthenticationError{Reason: "login rejected or account restricted", URL: postLogin}
	}

	slog.Info("Login successful")
	c.progress.Publish(session, progress.StageLoggingIn, "Login successful!")
	return nil
}

// humanType clicks the field and types text one character at a time.
func (c *Controller) humanType(ctx context.Context, tab Tab, selector, text string) error {
	if err := tab.Click(ctx, selector); err != nil {
		return err
	}
	if err := c.pacer.Pause(ctx, 25*time.Millisecond, 50*time.Millisecond); err != nil {
		return err
	}
	for _, r := range text {
		if err := tab.SendKeys(ctx, selector, string(r)); err != nil {
			return err
		}
		if err := c.pacer.Pause(ctx, 5*time.Millisecond, 15*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// navigate loads url, turning a timeout into a NavigationTimeoutError.
func (c *Controller) navigate(ctx context.Context, tab Tab, url string, timeout time.Duration) error {
	err := tab.Navigate(ctx, url, timeout)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return &NavigationTimeoutError{URL: url, Err: err}
	default:
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
}
