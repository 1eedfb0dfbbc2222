package subtitles

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"subweave/internal/fileutil"
)

// Cue is one timed subtitle entry. Text may span several lines separated by
// "\n".
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Lines returns the number of text lines in the cue (at least 1).
func (c Cue) Lines() int {
	return LineCount(c.Text)
}

// LineCount returns the number of lines in text, never less than 1.
func LineCount(text string) int {
	text = strings.Trim(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if text == "" {
		return 1
	}
	return strings.Count(text, "\n") + 1
}

// ParseSRT reads all cues from r. Blocks without a valid timing line are
// skipped; a missing index line is tolerated.
func ParseSRT(r io.Reader) ([]Cue, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		cues  []Cue
		block []string
		first = true
	)
	flush := func() {
		if cue, ok := parseBlock(block); ok {
			cues = append(cues, cue)
		}
		block = block[:0]
	}
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			if len(block) > 0 {
				flush()
			}
			continue
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	if len(block) > 0 {
		flush()
	}
	return cues, nil
}

func parseBlock(lines []string) (Cue, bool) {
	timingAt := -1
	for i, line := range lines {
		if strings.Contains(line, "-->") {
			timingAt = i
			break
		}
	}
	if timingAt < 0 || timingAt > 1 {
		return Cue{}, false
	}
	parts := strings.SplitN(lines[timingAt], "-->", 2)
	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return Cue{}, false
	}
	end, err := ParseTimestamp(firstField(parts[1]))
	if err != nil {
		return Cue{}, false
	}
	var index int
	if timingAt == 1 {
		index, _ = strconv.Atoi(strings.TrimSpace(lines[0]))
	}
	return Cue{
		Index: index,
		Start: start,
		End:   end,
		Text:  strings.Join(lines[timingAt+1:], "\n"),
	}, true
}

// firstField drops SRT position hints that may follow the end timestamp.
func firstField(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// ReadSRTFile parses the SRT file at path.
func ReadSRTFile(path string) ([]Cue, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open srt: %w", err)
	}
	defer file.Close()
	return ParseSRT(file)
}

// ParseTimestamp converts HH:MM:SS,mmm (or HH:MM:SS.mmm) into seconds. The
// fraction is read as a decimal: ",5" is 500ms and digits past the third are
// dropped.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	frac := timeParts[1]
	if strings.Trim(frac, "0123456789") != "" {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if len(frac) > 3 {
		frac = frac[:3]
	}
	if frac != "" {
		frac += strings.Repeat("0", 3-len(frac))
	}
	millis, errMS := strconv.Atoi(frac)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm. Negative values clamp to 0.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	msTotal := int(seconds*1000 + 0.5)
	hours := msTotal / 3_600_000
	msTotal %= 3_600_000
	minutes := msTotal / 60_000
	msTotal %= 60_000
	secs := msTotal / 1_000
	millis := msTotal % 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// FormatSRT renders cues in SubRip form, numbering them from 1.
func FormatSRT(cues []Cue) string {
	var sb strings.Builder
	for i, cue := range cues {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d\n", i+1)
		fmt.Fprintf(&sb, "%s --> %s\n", FormatTimestamp(cue.Start), FormatTimestamp(cue.End))
		sb.WriteString(strings.ReplaceAll(cue.Text, "\r\n", "\n"))
		sb.WriteString("\n")
	}
	return sb.String()
}

// WriteSRTFile atomically writes cues to path.
func WriteSRTFile(ctx context.Context, path string, cues []Cue) error {
	return fileutil.WriteFileAtomic(ctx, path, []byte(FormatSRT(cues)), 0o644)
}
