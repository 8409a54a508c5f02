package surface

import (
	"image"
	"sync"
)

// Frame holds the most recent camera frame.
type Frame struct {
	mu  sync.RWMutex
	img image.Image
}

func (f *Frame) Set(img image.Image) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.img = img
}

func (f *Frame) Clear() {
	f.Set(nil)
}

// Frame returns the current frame and whether one is present.
func (f *Frame) Frame() (image.Image, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.img, f.img != nil
}
