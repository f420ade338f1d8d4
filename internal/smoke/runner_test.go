package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const testBaseURL = "http://localhost:28001"

type fakeDocument struct {
	title   string
	html    string
	visible map[string]bool
}

type fakePage struct {
	docs     map[string]fakeDocument
	gotoErrs map[string]error
	current  string
	visited  []string
}

func (p *fakePage) Goto(_ context.Context, url string) error {
	p.visited = append(p.visited, url)
	if err, ok := p.gotoErrs[url]; ok {
		return err
	}
	p.current = url
	return nil
}

func (p *fakePage) Screenshot(_ context.Context, path string) error {
	return os.WriteFile(path, []byte("png:"+p.current), 0o600)
}

func (p *fakePage) Title(_ context.Context) (string, error) {
	return p.docs[p.current].title, nil
}

func (p *fakePage) Content(_ context.Context) (string, error) {
	return p.docs[p.current].html, nil
}

func (p *fakePage) IsVisible(_ context.Context, selector string) (bool, error) {
	return p.docs[p.current].visible[selector], nil
}

type fakeBrowser struct {
	page     *fakePage
	closed   int
	closeErr error
}

func (b *fakeBrowser) NewPage(context.Context) (Page, error) {
	return b.page, nil
}

func (b *fakeBrowser) Close() error {
	b.closed++
	return b.closeErr
}

func newFakeSite() *fakePage {
	return &fakePage{
		docs: map[string]fakeDocument{
			testBaseURL + "/": {
				title: "RL Server",
				html:  "<html><head><title>RL Server</title></head><body>welcome</body></html>",
			},
			testBaseURL + "/admin/login": {
				title: "Admin Login",
				html:  `<form><input name="username"><input name="password" type="password"></form>`,
				visible: map[string]bool{
					UsernameInputSelector: true,
					PasswordInputSelector: true,
				},
			},
			testBaseURL + "/admin/dashboard": {
				title: "Dashboard",
				html:  "<html><body>dashboard</body></html>",
			},
		},
		gotoErrs: map[string]error{},
	}
}

func newTestRunner(t *testing.T, browser *fakeBrowser) (*Runner, string) {
	t.Helper()
	outDir := t.TempDir()
	launcher := LauncherFunc(func(context.Context) (Browser, error) { return browser, nil })
	return NewRunner(launcher, Options{BaseURL: testBaseURL, OutputDir: outDir}, nil), outDir
}

func assertScreenshots(t *testing.T, dir string, present, absent []string) {
	t.Helper()
	for _, name := range present {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected screenshot %s: %v", name, err)
		}
	}
	for _, name := range absent {
		if _, err := os.Stat(filepath.Join(dir, name)); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected no screenshot %s, stat err=%v", name, err)
		}
	}
}

var allScreenshots = []string{"homepage.png", "login_page.png", "dashboard.png"}

func TestRunVisitsAllPagesInOrder(t *testing.T) {
	browser := &fakeBrowser{page: newFakeSite()}
	runner, outDir := newTestRunner(t, browser)

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report == nil {
		t.Fatal("expected report")
	}

	if report.Stage != StageDone {
		t.Fatalf("expected stage done, got %s", report.Stage)
	}
	wantVisited := []string{
		testBaseURL + "/",
		testBaseURL + "/admin/login",
		testBaseURL + "/admin/dashboard",
	}
	if !reflect.DeepEqual(browser.page.visited, wantVisited) {
		t.Fatalf("unexpected navigation order: %v", browser.page.visited)
	}
	if len(report.Visits) != 3 {
		t.Fatalf("expected 3 visits, got %d", len(report.Visits))
	}
	assertScreenshots(t, outDir, allScreenshots, nil)

	if report.HomeTitle != "RL Server" {
		t.Fatalf("unexpected home title: %q", report.HomeTitle)
	}
	if want := len(browser.page.docs[testBaseURL+"/"].html); report.HomeContentLength != want {
		t.Fatalf("expected content length %d, got %d", want, report.HomeContentLength)
	}
	if report.HomePossibleError {
		t.Fatal("home page should not be flagged")
	}
	if !report.LoginFormChecked || !report.LoginHasFields {
		t.Fatalf("expected login fields to be found: %+v", report)
	}
	if browser.closed != 1 {
		t.Fatalf("expected browser closed once, got %d", browser.closed)
	}
	if report.RunID == "" {
		t.Fatal("expected run id")
	}
}

func TestRunLoginMissingPassword(t *testing.T) {
	site := newFakeSite()
	login := site.docs[testBaseURL+"/admin/login"]
	login.visible = map[string]bool{UsernameInputSelector: true}
	site.docs[testBaseURL+"/admin/login"] = login

	browser := &fakeBrowser{page: site}
	runner, _ := newTestRunner(t, browser)

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !report.LoginFormChecked || report.LoginHasFields {
		t.Fatalf("expected missing password to be reported: %+v", report)
	}
	if report.Stage != StageDone {
		t.Fatalf("missing fields should not abort the run, got stage %s", report.Stage)
	}
}

func TestRunFlagsErrorTextOnHome(t *testing.T) {
	cases := map[string]bool{
		"<body>Internal Server Error</body>": true,
		"<body>error: upstream down</body>":  true,
		"<body>ERROR</body>":                 true,
		"<body>all good</body>":              false,
	}

	for html, want := range cases {
		site := newFakeSite()
		home := site.docs[testBaseURL+"/"]
		home.html = html
		site.docs[testBaseURL+"/"] = home

		runner, _ := newTestRunner(t, &fakeBrowser{page: site})
		report, err := runner.Run(context.Background())
		if err != nil {
			t.Fatalf("html=%q: Run returned error: %v", html, err)
		}
		if report.HomePossibleError != want {
			t.Fatalf("html=%q: expected possible error=%v", html, want)
		}
	}
}

func TestRunFirstNavigationFailure(t *testing.T) {
	site := newFakeSite()
	navErr := errors.New("net::ERR_CONNECTION_REFUSED")
	site.gotoErrs[testBaseURL+"/"] = navErr

	browser := &fakeBrowser{page: site}
	runner, outDir := newTestRunner(t, browser)

	report, err := runner.Run(context.Background())
	if !errors.Is(err, ErrStepFailed) || !errors.Is(err, navErr) {
		t.Fatalf("expected step failure wrapping navigation error, got %v", err)
	}

	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected *StepError, got %T", err)
	}
	if stepErr.Step != StepHome {
		t.Fatalf("expected failing step %s, got %s", StepHome, stepErr.Step)
	}

	if report.Stage != StageAborted {
		t.Fatalf("expected stage aborted, got %s", report.Stage)
	}
	if len(report.Visits) != 0 {
		t.Fatalf("expected no visits, got %d", len(report.Visits))
	}
	if browser.closed != 1 {
		t.Fatalf("expected browser closed once, got %d", browser.closed)
	}
	assertScreenshots(t, outDir, nil, allScreenshots)
}

func TestRunFailureMidSequenceSkipsRemainingSteps(t *testing.T) {
	site := newFakeSite()
	site.gotoErrs[testBaseURL+"/admin/login"] = errors.New("timeout 30000ms exceeded")

	browser := &fakeBrowser{page: site}
	runner, outDir := newTestRunner(t, browser)

	report, err := runner.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if report.Stage != StageAborted {
		t.Fatalf("expected stage aborted, got %s", report.Stage)
	}
	if len(report.Visits) != 1 {
		t.Fatalf("expected only the home visit, got %d", len(report.Visits))
	}
	assertScreenshots(t, outDir, []string{"homepage.png"}, []string{"login_page.png", "dashboard.png"})
	for _, url := range site.visited {
		if url == testBaseURL+"/admin/dashboard" {
			t.Fatal("dashboard must not be visited after a failure")
		}
	}
	if browser.closed != 1 {
		t.Fatalf("expected browser closed once, got %d", browser.closed)
	}
}

func TestRunJoinsCloseError(t *testing.T) {
	closeErr := errors.New("browser already gone")
	browser := &fakeBrowser{page: newFakeSite(), closeErr: closeErr}
	runner, _ := newTestRunner(t, browser)

	report, err := runner.Run(context.Background())
	if !errors.Is(err, closeErr) {
		t.Fatalf("expected close error, got %v", err)
	}
	if report.Stage != StageDone {
		t.Fatalf("expected stage done, got %s", report.Stage)
	}
}

func TestRunLaunchFailure(t *testing.T) {
	launchErr := errors.New("executable doesn't exist")
	launcher := LauncherFunc(func(context.Context) (Browser, error) { return nil, launchErr })
	runner := NewRunner(launcher, Options{BaseURL: testBaseURL, OutputDir: t.TempDir()}, nil)

	report, err := runner.Run(context.Background())
	if !errors.Is(err, launchErr) {
		t.Fatalf("expected launch error, got %v", err)
	}
	if report.Stage != StageAborted {
		t.Fatalf("expected stage aborted, got %s", report.Stage)
	}
}

func TestRunTrimsTrailingSlashFromBaseURL(t *testing.T) {
	site := newFakeSite()
	browser := &fakeBrowser{page: site}
	launcher := LauncherFunc(func(context.Context) (Browser, error) { return browser, nil })
	runner := NewRunner(launcher, Options{BaseURL: testBaseURL + "/", OutputDir: t.TempDir()}, nil)

	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := site.visited[1]; got != testBaseURL+"/admin/login" {
		t.Fatalf("unexpected login url: %s", got)
	}
}

func TestReportWriteSummary(t *testing.T) {
	browser := &fakeBrowser{page: newFakeSite()}
	runner, _ := newTestRunner(t, browser)

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	var out strings.Builder
	report.WriteSummary(&out)
	summary := out.String()
	for _, want := range []string{
		"page title: RL Server",
		"login page has username and password inputs",
		"stage: done",
	} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestReportWriteJSON(t *testing.T) {
	site := newFakeSite()
	site.gotoErrs[testBaseURL+"/admin/dashboard"] = errors.New("net::ERR_ABORTED")
	runner, _ := newTestRunner(t, &fakeBrowser{page: site})

	report, _ := runner.Run(context.Background())

	var out bytes.Buffer
	if err := report.WriteJSON(&out); err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}

	var decoded struct {
		RunID  string `json:"run_id"`
		Stage  string `json:"stage"`
		Visits []struct {
			Step       string `json:"step"`
			Screenshot string `json:"screenshot"`
		} `json:"visits"`
		HomeTitle      string `json:"home_title"`
		LoginHasFields bool   `json:"login_has_fields"`
	}
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("report is not valid json: %v\n%s", err, out.String())
	}
	if decoded.RunID != report.RunID || decoded.Stage != string(StageAborted) {
		t.Fatalf("unexpected decoded report: %+v", decoded)
	}
	if len(decoded.Visits) != 2 || decoded.Visits[1].Step != StepLogin {
		t.Fatalf("unexpected visits: %+v", decoded.Visits)
	}
	if filepath.Base(decoded.Visits[0].Screenshot) != "homepage.png" {
		t.Fatalf("unexpected screenshot path: %s", decoded.Visits[0].Screenshot)
	}
	if decoded.HomeTitle != "RL Server" || !decoded.LoginHasFields {
		t.Fatalf("unexpected findings: %+v", decoded)
	}
}

func TestReportWriteJSONEmptyVisits(t *testing.T) {
	launcher := LauncherFunc(func(context.Context) (Browser, error) { return nil, errors.New("no browser") })
	report, _ := NewRunner(launcher, Options{BaseURL: testBaseURL}, nil).Run(context.Background())

	var out bytes.Buffer
	if err := report.WriteJSON(&out); err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}
	if !strings.Contains(out.String(), `"visits": []`) {
		t.Fatalf("expected empty visits array:\n%s", out.String())
	}
}

func TestContainsErrorText(t *testing.T) {
	cases := map[string]bool{
		"An Error occurred": true,
		"errors":            true,
		"err":               false,
		"":                  false,
	}
	for content, want := range cases {
		if got := ContainsErrorText(content); got != want {
			t.Fatalf("ContainsErrorText(%q) = %v, want %v", content, got, want)
		}
	}
}
