// Package toolfmt renders the tool-call metadata ChatWise stores on a
// message as readable text blocks.
//
// The blob is a JSON object with an optional "toolCall" member (call id to
// call description) and an optional "toolResult" member (an MCP result,
// either as an object or as a JSON-encoded string). Anything else renders
// as nothing.
package toolfmt

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

const indent = "  "

// Format renders meta as call and result blocks, each line prefixed with
// two spaces and terminated by a newline. Absent or malformed metadata, or
// metadata without tool members, yields "".
func Format(meta string) string {
	if strings.TrimSpace(meta) == "" {
		return ""
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(meta), &doc); err != nil || doc == nil {
		return ""
	}

	call, hasCall := doc["toolCall"]
	result, hasResult := doc["toolResult"]
	if !hasCall && !hasResult {
		return ""
	}

	var b strings.Builder
	if hasCall && truthy(call) {
		writeCalls(&b, call)
	}
	if hasResult {
		writeResult(&b, result)
	}
	return b.String()
}

type entry struct {
	key   string
	value json.RawMessage
}

// entries returns the members of a JSON object in document order, or the
// elements of an array keyed by index.
func entries(raw json.RawMessage) []entry {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil
	}

	var out []entry
	switch delim {
	case '{':
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return out
			}
			key, _ := keyTok.(string)
			var v json.RawMessage
			if err := dec.Decode(&v); err != nil {
				return out
			}
			out = append(out, entry{key: key, value: v})
		}
	case '[':
		for i := 0; dec.More(); i++ {
			var v json.RawMessage
			if err := dec.Decode(&v); err != nil {
				return out
			}
			out = append(out, entry{key: strconv.Itoa(i), value: v})
		}
	}
	return out
}

func writeCalls(b *strings.Builder, raw json.RawMessage) {
	for _, e := range entries(raw) {
		if !isContainer(e.value) {
			b.WriteString(indent + "<Tool Call> " + e.key + ": " + compact(e.value) + "\n")
			continue
		}

		var fields map[string]json.RawMessage
		_ = json.Unmarshal(e.value, &fields) // arrays leave fields nil

		server := scalarText(first(fields, "server_name", "server"))
		tool := scalarText(first(fields, "tool_name", "tool"))
		b.WriteString(indent + "<Tool Call> " + e.key + " server=" + server + " tool=" + tool + "\n")

		if args := prettyArgs(first(fields, "arguments", "args")); args != "" {
			b.WriteString(indent + "<Args>\n" + args + "\n")
		}
	}
}

// prettyArgs indents JSON arguments. A string holding JSON is decoded
// first; a string that is not JSON is shown verbatim.
func prettyArgs(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if pretty, ok := prettyJSON([]byte(s)); ok {
			return pretty
		}
		return s
	}
	pretty, _ := prettyJSON(raw)
	return pretty
}

func writeResult(b *strings.Builder, raw json.RawMessage) {
	var parsed json.RawMessage
	var rawString string
	isString := json.Unmarshal(raw, &rawString) == nil

	switch {
	case isString:
		if json.Valid([]byte(rawString)) {
			parsed = json.RawMessage(strings.TrimSpace(rawString))
		}
	case isContainer(raw):
		parsed = raw
	}

	if parsed != nil && truthy(parsed) {
		if text, ok := contentText(parsed); ok && text != "" {
			b.WriteString(indent + "<Tool Result>\n" + text + "\n")
			return
		}
		pretty, ok := prettyJSON(parsed)
		if !ok {
			b.WriteString(indent + "<Tool Result> [Unparseable]\n")
			return
		}
		b.WriteString(indent + "<Tool Result (JSON)> " + pretty + "\n")
		return
	}

	if isString && strings.TrimSpace(rawString) != "" {
		b.WriteString(indent + "<Tool Result (Raw)> " + rawString + "\n")
	}
}

// contentText joins the text parts of an MCP result's content array. ok is
// false when there is no content array at all.
func contentText(raw json.RawMessage) (string, bool) {
	var res struct {
		Content []json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &res); err != nil || res.Content == nil {
		return "", false
	}
	var parts []string
	for _, c := range res.Content {
		var part struct {
			Type string           `json:"type"`
			Text *json.RawMessage `json:"text"`
		}
		if err := json.Unmarshal(c, &part); err != nil || part.Type != "text" || part.Text == nil {
			continue
		}
		var text string
		if err := json.Unmarshal(*part.Text, &text); err != nil {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n"), true
}

// first returns the first of keys present in fields with a non-null value.
func first(fields map[string]json.RawMessage, keys ...string) json.RawMessage {
	for _, k := range keys {
		if v, ok := fields[k]; ok && string(bytes.TrimSpace(v)) != "null" {
			return v
		}
	}
	return nil
}

func scalarText(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return compact(raw)
}

func prettyJSON(raw []byte) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) {
		return "", false
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", indent); err != nil {
		return "", false
	}
	return buf.String(), true
}

func compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func isContainer(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && (t[0] == '{' || t[0] == '[')
}

// truthy reports whether a JSON value is non-empty in the loose sense the
// desktop app uses: objects and arrays always, non-zero numbers, non-empty
// strings and true.
func truthy(raw json.RawMessage) bool {
	t := string(bytes.TrimSpace(raw))
	switch {
	case t == "", t == "null", t == "false", t == `""`:
		return false
	case t[0] == '{' || t[0] == '[' || t[0] == '"' || t == "true":
		return true
	}
	var f float64
	if err := json.Unmarshal([]byte(t), &f); err == nil {
		return f != 0
	}
	return false
}
