package device

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"unicode"

	"github.com/banshee-data/citation.report/internal/monitoring"
)

// NoKeys reports every key as released.
type NoKeys struct{}

func (NoKeys) Pressed(rune) bool { return false }

// Linux input event constants.
const (
	evKey       = 0x01
	keyReleased = 0
	// inputEventSize is sizeof(struct input_event) on 64-bit kernels.
	inputEventSize = 24
)

// keyCodes maps the letters the rules care about to evdev key codes.
var keyCodes = map[rune]uint16{
	'h': 35,
	't': 20,
}

// Keyboard tracks held keys from an evdev device node.
type Keyboard struct {
	r io.ReadCloser

	mu   sync.RWMutex
	held map[uint16]bool
}

// OpenKeyboard opens an evdev node such as /dev/input/by-id/...-event-kbd.
// Reading it normally requires membership of the input group.
func OpenKeyboard(path string) (*Keyboard, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyboard: %w", err)
	}
	return NewKeyboard(f), nil
}

// NewKeyboard reads raw input events from r.
func NewKeyboard(r io.ReadCloser) *Keyboard {
	return &Keyboard{r: r, held: make(map[uint16]bool)}
}

// Pressed reports whether key is currently held.
func (k *Keyboard) Pressed(key rune) bool {
	code, ok := keyCodes[unicode.ToLower(key)]
	if !ok {
		return false
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.held[code]
}

// Run consumes events until the device closes or ctx is done. Every key is
// released when Run returns.
func (k *Keyboard) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	defer k.releaseAll()
	go func() {
		select {
		case <-ctx.Done():
			k.r.Close()
		case <-stop:
		}
	}()

	buf := make([]byte, inputEventSize)
	for {
		if _, err := io.ReadFull(k.r, buf); err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return ctx.Err()
			}
			monitoring.Logf("[Device Monitor ERROR] keyboard read: %v", err)
			return err
		}
		k.apply(buf)
	}
}

func (k *Keyboard) releaseAll() {
	k.mu.Lock()
	defer k.mu.Unlock()
	clear(k.held)
}

func (k *Keyboard) apply(ev []byte) {
	typ := binary.LittleEndian.Uint16(ev[16:18])
	if typ != evKey {
		return
	}
	code := binary.LittleEndian.Uint16(ev[18:20])
	value := int32(binary.LittleEndian.Uint32(ev[20:24]))

	k.mu.Lock()
	defer k.mu.Unlock()
	if value == keyReleased {
		delete(k.held, code)
		return
	}
	k.held[code] = true
}
