package stt

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/antoniostano/clawvoice/internal/audio"
)

// whisperCLI shells out to a whisper.cpp binary for fully local
// transcription. Each call stages the utterance as a temp WAV file.
type whisperCLI struct {
	cliPath   string
	modelPath string
	language  string
	threads   int
}

func newWhisperCLI(cli, modelPath, language string, threads int) (*whisperCLI, error) {
	cli = strings.TrimSpace(cli)
	if cli == "" {
		cli = "whisper-cli"
	}
	cliPath, err := exec.LookPath(cli)
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp CLI not found (%s)", cli)
	}
	modelPath = strings.TrimSpace(modelPath)
	if modelPath == "" {
		return nil, fmt.Errorf("LOCAL_WHISPER_MODEL_PATH is required")
	}
	if !filepath.IsAbs(modelPath) {
		if wd, err := os.Getwd(); err == nil {
			modelPath = filepath.Join(wd, modelPath)
		}
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("whisper.cpp model not found: %s", modelPath)
	}
	language = strings.TrimSpace(language)
	if language == "" {
		language = "en"
	}
	if threads < 0 {
		return nil, fmt.Errorf("LOCAL_WHISPER_THREADS must be >= 0")
	}
	if threads == 0 {
		// Auto-pick: enough threads for realtime response without
		// saturating the host.
		threads = runtime.NumCPU()
		if threads > 8 {
			threads = 8
		}
		if threads < 2 {
			threads = 2
		}
	}
	return &whisperCLI{
		cliPath:   cliPath,
		modelPath: modelPath,
		language:  language,
		threads:   threads,
	}, nil
}

func (w *whisperCLI) Name() string { return "whisper" }

func (w *whisperCLI) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	tmpDir, err := os.MkdirTemp("", "clawvoice-whisper-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	wavPath := filepath.Join(tmpDir, "audio.wav")
	if err := audio.WriteWAVPCM16LEFile(wavPath, audio.Float32ToPCM16LE(samples), sampleRate); err != nil {
		return "", err
	}
	outPrefix := filepath.Join(tmpDir, "out")

	// whisper.cpp CLI flag set varies slightly across builds; keep this conservative.
	args := []string{
		"-m", w.modelPath,
		"-f", wavPath,
		"-l", w.language,
		"-otxt",
		"-of", outPrefix,
		"-nt",
		"-t", strconv.Itoa(w.threads),
	}
	cmd := exec.CommandContext(ctx, w.cliPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("whisper.cpp failed: %v: %s", err, strings.TrimSpace(string(out)))
	}

	text, err := os.ReadFile(outPrefix + ".txt")
	if err != nil {
		return "", fmt.Errorf("read whisper.cpp output: %w", err)
	}
	return strings.TrimSpace(string(text)), nil
}
