package smoke

import (
	"encoding/json"
	"fmt"
	"io"
)

type Stage string

const (
	StageIdle             Stage = "idle"
	StageHomeVisited      Stage = "home_visited"
	StageLoginVisited     Stage = "login_visited"
	StageDashboardVisited Stage = "dashboard_visited"
	StageDone             Stage = "done"
	StageAborted          Stage = "aborted"
)

type Visit struct {
	Step       string `json:"step"`
	URL        string `json:"url"`
	Screenshot string `json:"screenshot"`
}

type Report struct {
	RunID   string  `json:"run_id"`
	BaseURL string  `json:"base_url"`
	Stage   Stage   `json:"stage"`
	Visits  []Visit `json:"visits"`

	HomeTitle         string `json:"home_title"`
	HomeContentLength int    `json:"home_content_length"`
	HomePossibleError bool   `json:"home_possible_error"`

	LoginFormChecked bool `json:"login_form_checked"`
	LoginHasFields   bool `json:"login_has_fields"`
}

// WriteJSON writes the report as one indented JSON document, for CI jobs that
// parse the outcome instead of reading the summary.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteSummary prints the human-readable outcome of a run.
func (r *Report) WriteSummary(w io.Writer) {
	if r == nil {
		return
	}

	for _, visit := range r.Visits {
		fmt.Fprintf(w, "visited %s (%s), screenshot saved to %s\n", visit.Step, visit.URL, visit.Screenshot)
		if visit.Step == StepHome {
			fmt.Fprintf(w, "  page title: %s\n", r.HomeTitle)
			fmt.Fprintf(w, "  page content length: %d chars\n", r.HomeContentLength)
			if r.HomePossibleError {
				fmt.Fprintln(w, "  page contains error text")
			} else {
				fmt.Fprintln(w, "  no obvious error on page")
			}
		}
		if visit.Step == StepLogin && r.LoginFormChecked {
			if r.LoginHasFields {
				fmt.Fprintln(w, "  login page has username and password inputs")
			} else {
				fmt.Fprintln(w, "  login page is missing username or password input")
			}
		}
	}
	fmt.Fprintf(w, "stage: %s\n", r.Stage)
}
