package azcli

import (
	"context"
	"encoding/json"

	"github.com/matzehuels/azdiagram/pkg/errors"
)

// Check is the outcome of one preflight probe.
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
	// Code is set when the check failed.
	Code errors.Code `json:"code,omitempty"`
}

// Preflight verifies that az is installed, signed in and has the
// resource-graph extension. It always runs every check so the caller can
// show a complete report.
func (c *Client) Preflight(ctx context.Context) []Check {
	checks := make([]Check, 0, 3)

	install := Check{Name: "azure-cli"}
	if _, err := c.lookPath(c.exe); err != nil {
		install.Detail = "az not found on PATH; install it from https://aka.ms/azcli"
		install.Code = errors.ErrCodeBackendUnavailable
	} else {
		install.OK = true
		install.Detail = c.exe
	}
	checks = append(checks, install)

	login := Check{Name: "login"}
	if out, err := c.run(ctx, ListTimeout, "account", "show", "--output", "json"); err != nil {
		login.Detail = errors.UserMessage(err)
		login.Code = errors.GetCode(err)
		if login.Code == "" || login.Code == errors.ErrCodeBackendUnavailable {
			login.Code = errors.ErrCodeNotLoggedIn
			login.Detail = "not logged in to Azure; run `az login`"
		}
	} else {
		var acct struct {
			Name string `json:"name"`
			User struct {
				Name string `json:"name"`
			} `json:"user"`
		}
		_ = json.Unmarshal(out, &acct)
		login.OK = true
		login.Detail = acct.User.Name + " @ " + acct.Name
	}
	checks = append(checks, login)

	ext := Check{Name: "resource-graph"}
	out, err := c.run(ctx, ListTimeout, "extension", "list", "--output", "json")
	if err != nil {
		ext.Detail = errors.UserMessage(err)
		ext.Code = errors.GetCode(err)
	} else {
		var exts []struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		}
		_ = json.Unmarshal(out, &exts)
		for _, e := range exts {
			if e.Name == "resource-graph" {
				ext.OK = true
				ext.Detail = "version " + e.Version
			}
		}
		if !ext.OK {
			ext.Detail = "run `az extension add --name resource-graph`"
			ext.Code = errors.ErrCodeExtensionMissing
		}
	}
	return append(checks, ext)
}

// Failed returns the first failed check, if any.
func Failed(checks []Check) (Check, bool) {
	for _, c := range checks {
		if !c.OK {
			return c, true
		}
	}
	return Check{}, false
}
