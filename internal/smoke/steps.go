package smoke

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	StepHome      = "home"
	StepLogin     = "login"
	StepDashboard = "dashboard"

	UsernameInputSelector = "input[name='username']"
	PasswordInputSelector = "input[name='password']"
)

// Check inspects the page after navigation and records findings on the report.
type Check func(ctx context.Context, page Page, report *Report) error

type Step struct {
	Name       string
	Path       string
	Screenshot string
	Reached    Stage
	Checks     []Check
}

func DefaultSteps() []Step {
	return []Step{
		{
			Name:       StepHome,
			Path:       "/",
			Screenshot: "homepage.png",
			Reached:    StageHomeVisited,
			Checks:     []Check{InspectHome},
		},
		{
			Name:       StepLogin,
			Path:       "/admin/login",
			Screenshot: "login_page.png",
			Reached:    StageLoginVisited,
			Checks:     []Check{InspectLoginForm},
		},
		{
			Name:       StepDashboard,
			Path:       "/admin/dashboard",
			Screenshot: "dashboard.png",
			Reached:    StageDashboardVisited,
		},
	}
}

func InspectHome(ctx context.Context, page Page, report *Report) error {
	title, err := page.Title(ctx)
	if err != nil {
		return fmt.Errorf("read title: %w", err)
	}
	content, err := page.Content(ctx)
	if err != nil {
		return fmt.Errorf("read content: %w", err)
	}

	report.HomeTitle = title
	report.HomeContentLength = utf8.RuneCountInString(content)
	report.HomePossibleError = ContainsErrorText(content)
	return nil
}

// InspectLoginForm requires both credential inputs to be visible. The password
// input is not queried when the username input is already missing.
func InspectLoginForm(ctx context.Context, page Page, report *Report) error {
	hasUsername, err := page.IsVisible(ctx, UsernameInputSelector)
	if err != nil {
		return fmt.Errorf("check username input: %w", err)
	}

	hasPassword := false
	if hasUsername {
		hasPassword, err = page.IsVisible(ctx, PasswordInputSelector)
		if err != nil {
			return fmt.Errorf("check password input: %w", err)
		}
	}

	report.LoginFormChecked = true
	report.LoginHasFields = hasUsername && hasPassword
	return nil
}

// ContainsErrorText reports whether the HTML mentions "error" in any casing.
func ContainsErrorText(content string) bool {
	return strings.Contains(strings.ToLower(content), "error")
}
