// Package vad classifies audio chunks as speech or non-speech. The detector
// currently informs metrics and diagnostics only; turn boundaries come from
// explicit client controls.
package vad

import "github.com/antoniostano/clawvoice/internal/audio"

// Detector reports whether a chunk of samples contains speech.
type Detector interface {
	Name() string
	IsSpeech(samples []float32) bool
}

// NewEnergy builds an RMS-threshold detector. A non-positive threshold
// yields the assume-speech stand-in instead.
func NewEnergy(threshold float64) Detector {
	if threshold <= 0 {
		return assumeSpeech{}
	}
	return energy{threshold: threshold}
}

type energy struct {
	threshold float64
}

func (energy) Name() string { return "energy" }

func (e energy) IsSpeech(samples []float32) bool {
	if len(samples) == 0 {
		return false
	}
	return audio.RMS(samples) >= e.threshold
}

// assumeSpeech treats every non-empty chunk as speech, mirroring the
// behavior of a pipeline with detection disabled.
type assumeSpeech struct{}

func (assumeSpeech) Name() string { return "assume-speech" }

func (assumeSpeech) IsSpeech(samples []float32) bool {
	return len(samples) > 0
}
