package workers

import (
	"context"
	"errors"
	"sync"
	"time"
)

type beepCall struct {
	Hz int
	D  time.Duration
}

type fakeBeeper struct {
	mu    sync.Mutex
	calls []beepCall
	err   error
}

func (f *fakeBeeper) Beep(_ context.Context, hz int, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, beepCall{hz, d})
	return f.err
}

func (f *fakeBeeper) Calls() []beepCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]beepCall(nil), f.calls...)
}

type fakeSpeaker struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeSpeaker) Speak(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.err
}

func (f *fakeSpeaker) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type fakeCapturer struct {
	paths []string
	err   error
}

func (f *fakeCapturer) Capture(_ context.Context, path string) error {
	f.paths = append(f.paths, path)
	return f.err
}

type fakePrinter struct {
	printed []string
	err     error
}

func (f *fakePrinter) Print(_ context.Context, path string) error {
	f.printed = append(f.printed, path)
	return f.err
}

var errOffline = errors.New("offline")
