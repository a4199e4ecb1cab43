package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/germanamz/lingua/pkg/capability"
	"github.com/germanamz/lingua/pkg/providers/provider"
)

// allProviders lists the providers with capability tables, in display order.
var allProviders = []string{
	provider.OpenAI,
	provider.Anthropic,
	provider.Gemini,
	provider.OpenRouter,
	provider.Mistral,
	provider.Groq,
}

func runCapabilities(name string) error {
	names := allProviders
	if name != "" {
		if _, ok := capability.ForProvider(name); !ok {
			return fmt.Errorf("unknown provider %q", name)
		}
		names = []string{name}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "provider\tbase64\turi\timages\taudio\tfiles\ttools\tresult parts\tmax base64\tmime types")

	for _, n := range names {
		caps, _ := capability.ForProvider(n)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			caps.Provider,
			yesNo(caps.SupportsBase64BlobInput),
			yesNo(caps.SupportsBlobURIInput),
			yesNo(caps.SupportsImages),
			yesNo(caps.SupportsAudio),
			yesNo(caps.SupportsFiles),
			yesNo(caps.SupportsToolUse),
			yesNo(caps.SupportsToolResultParts),
			sizeLimit(caps.MaxBase64Size),
			mimeList(caps),
		)
	}

	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}

func sizeLimit(size int) string {
	if size == 0 {
		return "unlimited"
	}

	return fmt.Sprintf("%d", size)
}

func mimeList(caps capability.Capabilities) string {
	mimes := make([]string, 0, len(caps.AllowedMIMEInputs))
	for m := range caps.AllowedMIMEInputs {
		mimes = append(mimes, m)
	}
	sort.Strings(mimes)

	out := ""
	for i, m := range mimes {
		if i > 0 {
			out += ","
		}
		out += m
	}

	if out == "" {
		return "-"
	}

	return out
}
