package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/germanamz/lingua/pkg/chats/request"
	"github.com/germanamz/lingua/pkg/convert"
	"github.com/germanamz/lingua/pkg/fidelity"
	"github.com/germanamz/lingua/pkg/providers/anthropic"
	"github.com/germanamz/lingua/pkg/providers/gemini"
	"github.com/germanamz/lingua/pkg/providers/mistral"
	"github.com/germanamz/lingua/pkg/providers/openai"
	"github.com/germanamz/lingua/pkg/providers/openrouter"
	"github.com/germanamz/lingua/pkg/providers/provider"
)

// outcome is the result of one canonical→wire conversion: the wire value,
// the plan that was accumulated, and (when requested and supported) the
// request converted back to canonical form.
type outcome struct {
	wire any
	plan *convert.Plan
	back *request.ModelRequest
}

// convertFor dispatches to the converter for the target provider. With
// roundtrip set the wire request is converted back through the provider's
// reverse direction.
func convertFor(target string, req request.ModelRequest, model string, policy convert.Policy, roundtrip bool) (outcome, error) {
	reverse := func(fn func() (request.ModelRequest, error)) (*request.ModelRequest, error) {
		if !roundtrip {
			return nil, nil
		}
		back, err := fn()
		if err != nil {
			return nil, err
		}
		return &back, nil
	}

	switch target {
	case provider.OpenAI, provider.Groq:
		wire, plan, err := openai.ConvertAs(target, req, model, policy)
		if err != nil {
			return outcome{plan: plan}, err
		}
		back, err := reverse(func() (request.ModelRequest, error) { return openai.FromRequest(wire) })
		return outcome{wire: wire, plan: plan, back: back}, err
	case provider.Anthropic:
		wire, plan, err := anthropic.Convert(req, model, policy)
		if err != nil {
			return outcome{plan: plan}, err
		}
		back, err := reverse(func() (request.ModelRequest, error) { return anthropic.FromRequest(wire) })
		return outcome{wire: wire, plan: plan, back: back}, err
	case provider.Gemini:
		wire, plan, err := gemini.Convert(req, policy)
		if err != nil {
			return outcome{plan: plan}, err
		}
		back, err := reverse(func() (request.ModelRequest, error) { return gemini.FromRequest(wire) })
		return outcome{wire: wire, plan: plan, back: back}, err
	case provider.OpenRouter:
		wire, plan, err := openrouter.Convert(req, model, policy)
		if err != nil {
			return outcome{plan: plan}, err
		}
		back, err := reverse(func() (request.ModelRequest, error) { return openrouter.FromRequest(wire) })
		return outcome{wire: wire, plan: plan, back: back}, err
	case provider.Mistral:
		wire, plan, err := mistral.Convert(req, model, policy)
		if err != nil {
			return outcome{plan: plan}, err
		}
		back, err := reverse(func() (request.ModelRequest, error) { return mistral.FromRequest(wire) })
		return outcome{wire: wire, plan: plan, back: back}, err
	}

	return outcome{}, fmt.Errorf("unknown provider %q", target)
}

// readRequest loads a canonical request from a file, or stdin when path is
// "-".
func readRequest(path string) (request.ModelRequest, error) {
	var data []byte
	var err error

	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path) //nolint:gosec // user-supplied fixture path
	}
	if err != nil {
		return request.ModelRequest{}, fmt.Errorf("read request: %w", err)
	}

	var req request.ModelRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return request.ModelRequest{}, fmt.Errorf("parse request: %w", err)
	}

	return req, nil
}

func runConvert(in, target, model string, shadow, roundtrip bool) error {
	req, err := readRequest(in)
	if err != nil {
		return err
	}

	policy := convert.Strict
	if shadow {
		policy = convert.ShadowAllowed
	}

	out, err := convertFor(target, req, model, policy, roundtrip)
	if out.plan != nil {
		printVerdict(os.Stderr, out.plan)
	}
	if err != nil {
		return err
	}

	wireJSON, err := json.MarshalIndent(out.wire, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wire request: %w", err)
	}

	fmt.Println(string(wireJSON))

	if out.back != nil {
		report, err := fidelity.CompareRequests(req, *out.back)
		if err != nil {
			return err
		}
		printRoundtrip(os.Stderr, report)
	}

	return nil
}

// printVerdict writes the plan outcome: green when lossless, yellow for
// warnings, red for recorded errors.
func printVerdict(w io.Writer, plan *convert.Plan) {
	if plan.IsLossless() && len(plan.Warnings()) == 0 {
		color.New(color.FgGreen).Fprintf(w, "lossless conversion for %s\n", plan.Provider)
		return
	}

	if !plan.IsLossless() {
		color.New(color.FgRed).Fprintf(w, "lossy conversion for %s\n", plan.Provider)
	}

	for _, warning := range plan.Warnings() {
		color.New(color.FgYellow).Fprintf(w, "warning: %s\n", warning)
	}

	for _, err := range plan.Errors() {
		color.New(color.FgRed).Fprintf(w, "error: %v\n", err)
	}
}

func printRoundtrip(w io.Writer, report fidelity.Report) {
	if report.Equal {
		color.New(color.FgGreen).Fprintln(w, "roundtrip: identical")
		return
	}

	color.New(color.FgRed).Fprintln(w, "roundtrip: differences found")
	fmt.Fprint(w, report.Diff)
}
