package search

// ToolName is the MCP tool that runs searches.
const ToolName = "search_conversations"

// GatherToolName is the follow-up tool suggested in guidance.
const GatherToolName = "gather_chats"

// Stop conditions echoed in guidance.
const (
	StopIfKeyword = "confidence >= 0.75 || topChatIds.length <= 2"
	StopIfRecent  = "returned_recent_wildcard"
	StopIfNoTerms = "no terms"
)

// Response is the JSON document returned to callers.
type Response struct {
	Status         string   `json:"status"`
	IterationsUsed int      `json:"iterations_used"`
	Confidence     float64  `json:"confidence"`
	TopChatIDs     []string `json:"topChatIds"`
	Results        []Result `json:"results"`
	Guidance       Guidance `json:"guidance"`
}

// Result is one ranked conversation.
type Result struct {
	ChatID    string    `json:"chatId"`
	Title     string    `json:"title"`
	Hits      int       `json:"hits"`
	TimeRange TimeRange `json:"timeRange"`
	Snippets  []Snippet `json:"snippets"`
}

// TimeRange bounds a conversation's hits, in milliseconds.
type TimeRange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// Snippet is an excerpt of one hit.
type Snippet struct {
	MessageID string `json:"messageId"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"createdAt"`
	Text      string `json:"text"`
	Source    Source `json:"source"`
}

// Guidance suggests what a caller should do next.
type Guidance struct {
	StopIf      string   `json:"stopIf"`
	NextActions []Action `json:"nextActions"`
	State       State    `json:"state"`
}

// Action is a suggested follow-up tool call.
type Action struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
	Why  string         `json:"why"`
}

// State echoes the interpreted request.
type State struct {
	ExpandedTerms map[string][]string `json:"expandedTerms"`
	Excludes      []string            `json:"excludes"`
	Iteration     int                 `json:"iteration"`
}

func newResponse(stopIf string, excludes []string) *Response {
	if excludes == nil {
		excludes = []string{}
	}
	return &Response{
		Status:         "ok",
		IterationsUsed: 1,
		TopChatIDs:     []string{},
		Results:        []Result{},
		Guidance: Guidance{
			StopIf:      stopIf,
			NextActions: []Action{},
			State: State{
				ExpandedTerms: map[string][]string{},
				Excludes:      excludes,
				Iteration:     1,
			},
		},
	}
}

// gatherAction suggests pulling full timelines for up to three chats.
func gatherAction(ids []string, why string) Action {
	n := len(ids)
	if n > 3 {
		n = 3
	}
	return Action{
		Tool: GatherToolName,
		Args: map[string]any{
			"chatIds":      append([]string(nil), ids[:n]...),
			"includeTools": false,
		},
		Why: why,
	}
}

func retryAction(rawQuery string, p Precision) Action {
	other := PrecisionFuzzy
	if p == PrecisionFuzzy {
		other = PrecisionBasic
	}
	return Action{
		Tool: ToolName,
		Args: map[string]any{
			"intent_query":   rawQuery,
			"precision_mode": string(other),
		},
		Why: "Try alternate precision mode",
	}
}
