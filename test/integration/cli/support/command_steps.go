package support

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"
)

// RegisterCommandSteps registers the steps that run datpeek and check results.
func (testCtx *TestContext) RegisterCommandSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run datpeek "([^"]*)"$`, testCtx.iRunDatpeek)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the output should be:$`, testCtx.theOutputShouldBe)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the logs should mention "([^"]*)"$`, testCtx.theLogsShouldMention)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the JSON report "([^"]*)" should list (\d+) entries$`, testCtx.theJSONReportShouldList)
	sc.Step(`^the JSON report "([^"]*)" should map "([^"]*)" to "([^"]*)"$`, testCtx.theJSONReportShouldMap)
}

func (testCtx *TestContext) iRunDatpeek(args string) error {
	testCtx.runCommand(strings.Fields(args))
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastError != nil {
		return fmt.Errorf("datpeek %s failed: %w\nstdout:\n%s\nstderr:\n%s",
			strings.Join(testCtx.LastArgs, " "), testCtx.LastError, testCtx.LastOutput, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastError == nil {
		return fmt.Errorf("datpeek %s succeeded unexpectedly\nstdout:\n%s",
			strings.Join(testCtx.LastArgs, " "), testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expected string) error {
	if !strings.Contains(testCtx.LastOutput, expected) {
		return fmt.Errorf("output does not contain %q\noutput:\n%s", expected, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(unexpected string) error {
	if strings.Contains(testCtx.LastOutput, unexpected) {
		return fmt.Errorf("output unexpectedly contains %q\noutput:\n%s", unexpected, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBe(doc *godog.DocString) error {
	want := doc.Content + "\n"
	if testCtx.LastOutput != want {
		return fmt.Errorf("output mismatch\nwant:\n%q\ngot:\n%q", want, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	var v any
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &v); err != nil {
		return fmt.Errorf("output is not valid JSON: %w\noutput:\n%s", err, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theErrorShouldMention(expected string) error {
	if testCtx.LastError == nil {
		return errors.New("command did not fail")
	}
	if !strings.Contains(testCtx.LastError.Error(), expected) {
		return fmt.Errorf("error %q does not mention %q", testCtx.LastError, expected)
	}
	return nil
}

func (testCtx *TestContext) theLogsShouldMention(expected string) error {
	if !strings.Contains(testCtx.LastStderr, expected) {
		return fmt.Errorf("stderr does not contain %q\nstderr:\n%s", expected, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	if _, err := os.Stat(filepath.Join(testCtx.TempDir, name)); err != nil {
		return fmt.Errorf("expected file %s: %w", name, err)
	}
	return nil
}

type jsonReport struct {
	Entries []struct {
		Path    string `json:"path"`
		Decoder string `json:"decoder"`
		Reason  string `json:"reason"`
	} `json:"entries"`
}

func (testCtx *TestContext) readReport(name string) (*jsonReport, error) {
	data, err := os.ReadFile(filepath.Join(testCtx.TempDir, name))
	if err != nil {
		return nil, err
	}
	var r jsonReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("report %s is not valid JSON: %w", name, err)
	}
	return &r, nil
}

func (testCtx *TestContext) theJSONReportShouldList(name string, count int) error {
	r, err := testCtx.readReport(name)
	if err != nil {
		return err
	}
	if len(r.Entries) != count {
		return fmt.Errorf("report lists %d entries, want %d", len(r.Entries), count)
	}
	return nil
}

func (testCtx *TestContext) theJSONReportShouldMap(name, entry, want string) error {
	r, err := testCtx.readReport(name)
	if err != nil {
		return err
	}
	for _, e := range r.Entries {
		if filepath.Base(e.Path) != entry {
			continue
		}
		got := e.Decoder
		if e.Reason != "ok" {
			got = e.Reason
		}
		if got != want {
			return fmt.Errorf("%s: got %q, want %q", entry, got, want)
		}
		return nil
	}
	return fmt.Errorf("%s not in report", entry)
}
