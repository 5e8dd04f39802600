package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Marble879/simpletranscribe/internal/transcribe"
)

const blankAudioToken = "[BLANK_AUDIO]"

func isBlankTranscript(transcript string) bool {
	trimmed := strings.TrimSpace(transcript)
	if trimmed == "" {
		return true
	}

	return strings.EqualFold(trimmed, blankAudioToken)
}

func noSpeechHint() string {
	return "No speech detected. Check that the file contains audible speech and the language setting matches it."
}

// transcriptText trims the leading space whisper puts before every segment.
func transcriptText(result transcribe.Result) string {
	return strings.TrimSpace(result.Text())
}

func writeSegments(w io.Writer, result transcribe.Result) {
	for _, seg := range result.Segments() {
		fmt.Fprintf(w, "[%s - %s]: %s\n",
			transcribe.FormatTimestamp(seg.Start),
			transcribe.FormatTimestamp(seg.End),
			strings.TrimSpace(seg.Text),
		)
	}
}

type jsonSegment struct {
	Start int64  `json:"start_cs"`
	End   int64  `json:"end_cs"`
	Text  string `json:"text"`
}

type jsonResult struct {
	Model    string        `json:"model"`
	Text     string        `json:"text"`
	Start    int64         `json:"start_cs"`
	End      int64         `json:"end_cs"`
	Segments []jsonSegment `json:"segments"`
}

func writeJSON(w io.Writer, modelName string, result transcribe.Result) error {
	out := jsonResult{
		Model:    modelName,
		Text:     result.Text(),
		Start:    result.StartTimestamp(),
		End:      result.EndTimestamp(),
		Segments: make([]jsonSegment, 0, len(result.Segments())),
	}
	for _, seg := range result.Segments() {
		out.Segments = append(out.Segments, jsonSegment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	return nil
}
