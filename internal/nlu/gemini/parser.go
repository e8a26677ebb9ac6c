package gemini

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	errx "github.com/procurebot/relay/internal/core/error"
	logx "github.com/procurebot/relay/pkg/logger"
)

const (
	recDelim = "##"
	tupDelim = "<||>"
	endDelim = "<|COMPLETE|>"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 64 * 1024
	maxRecords    = 100
	maxTupleLen   = 4 * 1024
	maxErrSnippet = 200
)

// Intent is one scored intent from the model.
type Intent struct {
	Name       string
	Confidence float64
}

// Analysis is the parsed model output for one utterance.
type Analysis struct {
	Intents []Intent
	Slots   map[string]string
	Reply   string
	Errors  []string
}

// PrimaryIntent returns the highest-confidence intent at or above min.
func (a *Analysis) PrimaryIntent(min float64) (Intent, bool) {
	best := Intent{Confidence: -1}
	for _, it := range a.Intents {
		if it.Confidence > best.Confidence {
			best = it
		}
	}
	if best.Name == "" || best.Confidence < min {
		return Intent{}, false
	}
	return best, true
}

type rawTuple struct {
	Type  string
	Parts []string
}

func parseRawTuple(s string) (*rawTuple, error) {
	if s == "" {
		return nil, fmt.Errorf("empty tuple")
	}
	if len(s) > maxTupleLen {
		return nil, fmt.Errorf("tuple too large")
	}

	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, fmt.Errorf("invalid tuple parens")
	}
	// remove the outermost parens only; replies may contain delimiters
	inner := s[1 : len(s)-1]
	parts := strings.SplitN(inner, tupDelim, 3)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid tuple parts")
	}
	return &rawTuple{Type: strings.ToLower(strings.TrimSpace(parts[0])), Parts: parts}, nil
}

func parseConfidence(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
		return 0, fmt.Errorf("confidence out of range")
	}
	return v, nil
}

// ParseAnalysis reads the tuple records the model emits:
//
//	(intent<||>po_status<||>0.93)##(slot<||>po_number<||>4500012)##(reply<||>text)<|COMPLETE|>
//
// Bad records are skipped and noted in Errors.
func ParseAnalysis(content string) (out *Analysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "nlu_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("nlu parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			out = nil
		}
	}()

	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "nlu_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
	}
	if idx := strings.Index(content, endDelim); idx >= 0 {
		content = content[:idx]
	}

	out = &Analysis{Slots: map[string]string{}}
	addErr := func(msg string) { out.Errors = append(out.Errors, msg) }

	processed := 0
	for _, rec := range strings.Split(content, recDelim) {
		if processed >= maxRecords {
			addErr("records capped")
			break
		}
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		processed++

		rt, rerr := parseRawTuple(rec)
		if rerr != nil {
			addErr(fmt.Sprintf("bad_record: %s", safeSnippet(rec)))
			continue
		}

		switch rt.Type {
		case "intent":
			if len(rt.Parts) < 3 {
				addErr("intent: insufficient parts")
				continue
			}
			name := strings.ToLower(strings.TrimSpace(rt.Parts[1]))
			if name == "" || !utf8.ValidString(name) {
				addErr("intent: invalid name")
				continue
			}
			conf, err := parseConfidence(rt.Parts[2])
			if err != nil {
				addErr("intent: invalid confidence")
				continue
			}
			out.Intents = append(out.Intents, Intent{Name: name, Confidence: conf})

		case "slot":
			if len(rt.Parts) < 3 {
				addErr("slot: insufficient parts")
				continue
			}
			name := strings.ToLower(strings.TrimSpace(rt.Parts[1]))
			val := strings.TrimSpace(rt.Parts[2])
			if name == "" || val == "" || !utf8.ValidString(val) {
				addErr("slot: invalid name or value")
				continue
			}
			out.Slots[name] = val

		case "reply":
			text := strings.TrimSpace(strings.Join(rt.Parts[1:], tupDelim))
			if !utf8.ValidString(text) {
				addErr("reply: invalid utf8")
				continue
			}
			out.Reply = text

		default:
			addErr("unknown tuple type")
		}
	}
	return out, nil
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
