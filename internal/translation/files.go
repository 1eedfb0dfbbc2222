package translation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"subweave/internal/fileutil"
	"subweave/internal/logging"
	"subweave/internal/subtitles"
	"subweave/internal/textutil"
)

// FileResult describes the outcome for one subtitle file.
type FileResult struct {
	Source  string
	Dest    string
	Skipped bool
	Report  Report
	Err     error
}

// TranslateFile translates one SRT file into dst.
func (e *Engine) TranslateFile(ctx context.Context, src, dst, targetLang string) (Report, error) {
	cues, err := subtitles.ReadSRTFile(src)
	if err != nil {
		return Report{}, err
	}
	report, err := e.TranslateCues(ctx, cues, targetLang)
	if err != nil {
		return report, fmt.Errorf("translate %s: %w", filepath.Base(src), err)
	}
	if err := subtitles.WriteSRTFile(ctx, dst, cues); err != nil {
		return report, err
	}
	return report, nil
}

// TranslatePath translates a single .srt file or every .srt file under a
// directory. Destinations are named <stem>_<lang>.srt; files already carrying
// that suffix are ignored and existing destinations are skipped unless
// overwrite is set. A non-terminal failure on one file does not stop the
// others.
func (e *Engine) TranslatePath(ctx context.Context, input, output, targetLang string, overwrite bool) ([]FileResult, error) {
	jobs, err := PlanPath(input, output, targetLang)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, e.logger)

	results := make([]FileResult, 0, len(jobs))
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := FileResult{Source: job.Source, Dest: job.Dest}
		if !overwrite && fileutil.Exists(job.Dest) {
			res.Skipped = true
			logger.Info("translation exists, skipping",
				logging.String("source", job.Source),
				logging.String("dest", job.Dest),
			)
			results = append(results, res)
			continue
		}
		res.Report, res.Err = e.TranslateFile(ctx, job.Source, job.Dest, targetLang)
		results = append(results, res)
		if res.Err != nil {
			if IsTerminal(res.Err) {
				return results, res.Err
			}
			logging.WarnWithContext(logger, "subtitle translation failed", "translate_file_failed",
				logging.String("source", job.Source),
				logging.Error(res.Err),
				logging.String(logging.FieldImpact, "file left untranslated"),
				logging.String(logging.FieldErrorHint, "check the subtitle file is valid SRT"),
			)
		}
	}
	return results, nil
}

// Job pairs a source subtitle with its destination.
type Job struct {
	Source string
	Dest   string
}

// PlanPath resolves the source and destination files for TranslatePath.
func PlanPath(input, output, targetLang string) ([]Job, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	suffix := "_" + langSuffix(targetLang)

	if !info.IsDir() {
		if !strings.EqualFold(filepath.Ext(input), ".srt") {
			return nil, fmt.Errorf("input %s is not an .srt file", input)
		}
		name := DestName(filepath.Base(input), targetLang)
		dest := filepath.Join(filepath.Dir(input), name)
		if output != "" {
			if isDirTarget(output) {
				dest = filepath.Join(output, name)
			} else {
				dest = output
			}
		}
		return []Job{{Source: input, Dest: dest}}, nil
	}

	if output != "" {
		if st, err := os.Stat(output); err == nil && !st.IsDir() {
			return nil, fmt.Errorf("output %s must be a directory when translating a directory", output)
		}
	}
	var jobs []Job
	err = filepath.WalkDir(input, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".srt") {
			return nil
		}
		stem := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		if strings.HasSuffix(strings.ToLower(stem), suffix) {
			return nil
		}
		dir := filepath.Dir(path)
		if output != "" {
			rel, relErr := filepath.Rel(input, dir)
			if relErr != nil {
				return relErr
			}
			dir = filepath.Join(output, rel)
		}
		jobs = append(jobs, Job{Source: path, Dest: filepath.Join(dir, DestName(d.Name(), targetLang))})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", input, err)
	}
	if len(jobs) == 0 {
		return nil, errors.New("no .srt files found")
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Source < jobs[j].Source })
	return jobs, nil
}

// DestName returns <stem>_<lang>.srt for a subtitle file name.
func DestName(name, targetLang string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return fmt.Sprintf("%s_%s.srt", stem, langSuffix(targetLang))
}

// langSuffix lowercases a user-supplied language code for use in a file name.
func langSuffix(lang string) string {
	return textutil.SanitizeFileName(strings.ToLower(lang))
}

func isDirTarget(path string) bool {
	if strings.HasSuffix(path, string(os.PathSeparator)) || strings.HasSuffix(path, "/") {
		return true
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
