package merge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chatwise-tools/chatwise-mcp/internal/timewindow"
	"github.com/chatwise-tools/chatwise-mcp/internal/toolfmt"
)

// Untitled stands in for a missing chat title.
const Untitled = "<untitled>"

// FragmentLen is how many leading characters of a message id are shown.
const FragmentLen = 8

const separator = "---"

const preamble = "System instructions: below are several conversations, each laid out as its own raw timeline, " +
	"followed by a reference alignment of the parts they share. Work from:\n" +
	"- Per-conversation linear narrative: keep references, progressions and corrections within each conversation\n" +
	"- Common alignment: [Common] items cite the index in every conversation (1#3 is message 3 of conversation 1); " +
	"report shared conclusions and differences."

// RolePrefix labels a message line by its author.
func RolePrefix(role string) string {
	switch role {
	case "user":
		return "Me: "
	case "assistant":
		return "AI: "
	}
	return "[" + role + "] "
}

// Fragment returns the first FragmentLen characters of id.
func Fragment(id string) string {
	r := []rune(id)
	if len(r) > FragmentLen {
		r = r[:FragmentLen]
	}
	return string(r)
}

func timeSpan(first, last int64) string {
	return timewindow.Format(first) + " ~ " + timewindow.Format(last)
}

// writeEntry writes one message line, labelled by label, plus its tool
// blocks when requested.
func writeEntry(b *strings.Builder, label string, e Entry, opts Options) {
	m := e.Message
	fmt.Fprintf(b, "[%s](%s %s) %s%s\n", label, Fragment(m.ID), timewindow.Format(m.CreatedAt), RolePrefix(m.Role), m.Content)
	if opts.IncludeTools {
		b.WriteString(toolfmt.Format(m.Meta))
	}
}

// RenderView renders a single conversation.
func RenderView(tl Timeline, opts Options) string {
	var b strings.Builder
	b.WriteString("Conversation:\n")
	b.WriteString("- ID: " + tl.ChatID + "\n")
	b.WriteString("- Title: " + tl.Title() + "\n")
	b.WriteString("- Messages: " + strconv.Itoa(len(tl.Entries)) + "\n")
	if first, last, ok := tl.Span(); ok {
		b.WriteString("- Time range: " + timeSpan(first, last) + "\n")
	}
	b.WriteString(separator + "\n")

	if len(tl.Entries) == 0 {
		b.WriteString("(no messages)\n")
		return strings.TrimSpace(b.String())
	}
	b.WriteString("Messages:\n")
	for _, e := range tl.Entries {
		writeEntry(&b, "#"+strconv.Itoa(e.Seq), e, opts)
	}
	return strings.TrimSpace(b.String())
}

// RenderMerge renders several timelines followed by their common section.
func RenderMerge(timelines []Timeline, common []Common, opts Options) string {
	var b strings.Builder
	b.WriteString(preamble + "\n")
	b.WriteString(separator + "\n")

	b.WriteString("Meta:\n")
	for _, tl := range timelines {
		span := "n/a"
		if first, last, ok := tl.Span(); ok {
			span = timeSpan(first, last)
		}
		fmt.Fprintf(&b, "- Conversation %d: %s | Title: %s | Time: %s\n", tl.Ordinal, tl.ChatID, tl.Title(), span)
	}
	b.WriteString(separator + "\n")

	b.WriteString("Per-conversation timeline:\n")
	for _, tl := range timelines {
		fmt.Fprintf(&b, "—— Conversation %d ——\n", tl.Ordinal)
		if len(tl.Entries) == 0 {
			b.WriteString("(no messages)\n")
			continue
		}
		for _, e := range tl.Entries {
			writeEntry(&b, fmt.Sprintf("%d#%d", tl.Ordinal, e.Seq), e, opts)
		}
	}
	b.WriteString(separator + "\n")

	b.WriteString("Common alignment (present in every conversation, shown once with its index in each):\n")
	if len(common) == 0 {
		b.WriteString("(none)\n")
	}
	for _, c := range common {
		refs := make([]string, len(c.Refs))
		for i, r := range c.Refs {
			refs[i] = fmt.Sprintf("%d#%d(%s)", r.Ordinal, r.Seq, Fragment(r.MessageID))
		}
		fmt.Fprintf(&b, "[Common]%s%s  | Refs: %s\n", RolePrefix(c.Role), c.Content, strings.Join(refs, ","))
	}
	return strings.TrimSpace(b.String())
}
