package supervisor

import (
	"archive/zip"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wildwatch/wildlife-scan-bot/internal/models"
	"github.com/wildwatch/wildlife-scan-bot/internal/scan"
	"github.com/wildwatch/wildlife-scan-bot/internal/storage"
)

const (
	// DefaultTimeout is the wall-clock ceiling for one scan.
	DefaultTimeout = 1200 * time.Second

	// BundleName is the archive produced when a job has several artifacts.
	BundleName = "scan_results.zip"

	tailMaxChars = 1500
	tailMaxLines = 50
)

// ErrScanTimedOut reports a scan that hit the wall-clock ceiling and was
// forcibly cancelled. Partial artifacts are preserved.
var ErrScanTimedOut = errors.New("scan timed out")

// ScanFailedError reports a scan that exited with a failure, carrying a
// bounded tail of the captured output as the diagnostic.
type ScanFailedError struct {
	Err  error
	Tail string
}

func (e *ScanFailedError) Error() string {
	return fmt.Sprintf("scan failed: %v", e.Err)
}

func (e *ScanFailedError) Unwrap() error {
	return e.Err
}

// markerRe matches the engine's per-video progress marker.
var markerRe = regexp.MustCompile(`\[(\d+)/(\d+)\]`)

// Runner executes one scan, writing artifacts into outDir and progress
// text to out.
type Runner interface {
	Run(ctx context.Context, spec models.ScanJobSpec, outDir string, out io.Writer) (*scan.Result, error)
}

// Job is the handle for one supervised scan.
type Job struct {
	ID        string
	Spec      models.ScanJobSpec
	Progress  *ProgressState
	StartedAt time.Time

	dir    string
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	err       error
	result    *scan.Result
	artifacts []string
	endedAt   time.Time
}

// Done is closed when the scan reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Err returns the terminal error, if any. Valid once Done is closed.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Artifacts lists the non-empty output files the scan left behind.
// Valid once Done is closed.
func (j *Job) Artifacts() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.artifacts))
	copy(out, j.artifacts)
	return out
}

// Summary builds the scan outcome for reports and notifications.
func (j *Job) Summary() models.ScanSummary {
	j.mu.Lock()
	defer j.mu.Unlock()

	summary := models.ScanSummary{
		JobID:       j.ID,
		Keyword:     j.Spec.Keyword,
		StartedAt:   j.StartedAt,
		CompletedAt: j.endedAt,
	}
	if j.result != nil {
		summary.VideosScanned = len(j.result.Videos)
		summary.CommentHits = j.result.CommentHits()
		summary.ThumbnailHits = j.result.ThumbnailHits()
	}
	if errors.Is(j.err, ErrScanTimedOut) {
		summary.TimedOut = true
	}
	if j.err != nil {
		summary.FailureMessage = j.err.Error()
	}
	switch len(j.artifacts) {
	case 0:
	case 1:
		summary.ArtifactName = filepath.Base(j.artifacts[0])
	default:
		summary.ArtifactName = BundleName
	}
	return summary
}

// Supervisor owns the lifecycle of scan executions: it starts each scan
// as an isolated time-bounded unit, streams its output into a per-job
// progress state, and packages the resulting artifacts.
type Supervisor struct {
	runner  Runner
	timeout time.Duration
	mode    ProgressMode
	archive storage.Archive

	mu   sync.RWMutex
	jobs map[string]*Job
}

// New creates a supervisor. A non-positive timeout falls back to
// DefaultTimeout.
func New(runner Runner, timeout time.Duration, mode ProgressMode) *Supervisor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if mode != ProgressLines {
		mode = ProgressPercent
	}
	return &Supervisor{
		runner:  runner,
		timeout: timeout,
		mode:    mode,
		jobs:    make(map[string]*Job),
	}
}

// SetArchive configures an optional artifact archive. Completed bundles
// are uploaded there after a successful scan.
func (s *Supervisor) SetArchive(archive storage.Archive) {
	s.archive = archive
}

// Get returns a job handle by id.
func (s *Supervisor) Get(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

// Start validates the spec and launches the scan. The returned handle is
// live immediately; progress reads are valid before the first update.
func (s *Supervisor) Start(spec models.ScanJobSpec) (*Job, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "scan-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scan directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)

	job := &Job{
		ID:        uuid.New().String(),
		Spec:      spec,
		Progress:  newProgressState(s.mode),
		StartedAt: time.Now(),
		dir:       dir,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	pr, pw := io.Pipe()
	captured := make(chan []string, 1)

	// Reader loop: the single writer of the job's progress state.
	go func() {
		var lines []string
		scanner := bufio.NewScanner(pr)
		for scanner.Scan() {
			line := scanner.Text()
			lines = append(lines, line)

			switch s.mode {
			case ProgressLines:
				job.Progress.appendLine(line)
			default:
				if m := markerRe.FindStringSubmatch(line); m != nil {
					i, _ := strconv.Atoi(m[1])
					total, _ := strconv.Atoi(m[2])
					if total > 0 {
						job.Progress.setPercent(i * 100 / total)
					}
				}
			}
		}
		captured <- lines
	}()

	go s.run(ctx, job, pw, captured)

	logrus.Infof("Started scan %s for keyword %q", job.ID, spec.Keyword)
	return job, nil
}

// run executes the scan to completion and settles the job handle. The
// finalization of the progress state is unconditional: success, failure
// and timeout all pass through it.
func (s *Supervisor) run(ctx context.Context, job *Job, pw *io.PipeWriter, captured <-chan []string) {
	defer close(job.done)
	defer job.Progress.finalize()
	defer job.cancel()

	result, runErr := s.runner.Run(ctx, job.Spec, job.dir, pw)
	pw.Close()
	lines := <-captured

	writeScanLog(job.dir, lines)
	removeEmptyArtifacts(job.dir)

	if runErr != nil && ctx.Err() == context.DeadlineExceeded {
		runErr = fmt.Errorf("%w after %s", ErrScanTimedOut, s.timeout)
		logrus.Errorf("Scan %s timed out, partial artifacts preserved", job.ID)
	} else if runErr != nil {
		runErr = &ScanFailedError{Err: runErr, Tail: tail(lines)}
		logrus.Errorf("Scan %s failed: %v", job.ID, runErr)
	} else {
		logrus.Infof("Scan %s completed with %d hit(s)", job.ID, len(result.Hits))
	}

	job.mu.Lock()
	job.result = result
	job.err = runErr
	job.artifacts = listArtifacts(job.dir)
	job.endedAt = time.Now()
	job.mu.Unlock()

	if runErr == nil && s.archive != nil {
		s.archiveJob(job)
	}
}

// archiveJob uploads the packaged bundle to the configured archive.
// Archive failures are logged, never surfaced as scan failures.
func (s *Supervisor) archiveJob(job *Job) {
	path, name, err := s.Package(job)
	if err != nil {
		logrus.Errorf("Failed to package scan %s for archiving: %v", job.ID, err)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read bundle for scan %s: %v", job.ID, err)
		return
	}

	blobName := fmt.Sprintf("%s-%s-%s", job.StartedAt.Format("2006-01-02-15-04-05"), job.ID, name)
	if err := s.archive.Store(blobName, data); err != nil {
		logrus.Errorf("Failed to archive scan %s: %v", job.ID, err)
		return
	}
	logrus.Infof("Archived scan %s as %s", job.ID, blobName)
}

// Package returns a single downloadable file for the job: the lone
// artifact when there is one, or a deterministic zip bundle otherwise.
func (s *Supervisor) Package(job *Job) (path, name string, err error) {
	artifacts := job.Artifacts()
	if len(artifacts) == 0 {
		return "", "", fmt.Errorf("scan %s produced no artifacts", job.ID)
	}
	if len(artifacts) == 1 {
		return artifacts[0], filepath.Base(artifacts[0]), nil
	}

	bundlePath := filepath.Join(job.dir, BundleName)
	if _, statErr := os.Stat(bundlePath); statErr == nil {
		return bundlePath, BundleName, nil
	}

	if err := writeZip(bundlePath, artifacts); err != nil {
		return "", "", fmt.Errorf("failed to bundle artifacts: %w", err)
	}
	return bundlePath, BundleName, nil
}

// Cleanup deletes the job's temporary files and forgets the handle.
// Safe to call on every exit path, including after failed hand-offs.
func (s *Supervisor) Cleanup(job *Job) {
	job.cancel()
	if err := os.RemoveAll(job.dir); err != nil {
		logrus.Errorf("Failed to remove scan directory %s: %v", job.dir, err)
	}

	s.mu.Lock()
	delete(s.jobs, job.ID)
	s.mu.Unlock()
}

func writeScanLog(dir string, lines []string) {
	if len(lines) == 0 {
		return
	}
	path := filepath.Join(dir, scan.LogFileName)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		logrus.Errorf("Failed to write scan log: %v", err)
	}
}

// removeEmptyArtifacts deletes files that were created but never written.
func removeEmptyArtifacts(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() > 0 {
			continue
		}
		os.Remove(filepath.Join(dir, entry.Name()))
	}
}

func listArtifacts(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var artifacts []string
	for _, entry := range entries {
		if !entry.IsDir() {
			artifacts = append(artifacts, filepath.Join(dir, entry.Name()))
		}
	}
	return artifacts
}

// tail returns the last portion of the captured output, bounded by both
// line count and character count.
func tail(lines []string) string {
	if len(lines) > tailMaxLines {
		lines = lines[len(lines)-tailMaxLines:]
	}
	joined := strings.Join(lines, "\n")
	if len(joined) > tailMaxChars {
		joined = joined[len(joined)-tailMaxChars:]
	}
	return joined
}

func writeZip(dest string, files []string) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, file := range files {
		if err := addZipEntry(zw, file); err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}

func addZipEntry(zw *zip.Writer, file string) error {
	src, err := os.Open(file)
	if err != nil {
		return err
	}
	defer src.Close()

	entry, err := zw.Create(filepath.Base(file))
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, src)
	return err
}
