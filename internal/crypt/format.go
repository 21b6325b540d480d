// Package crypt detects and decrypts WhatsApp backup containers.
package crypt

import "strings"

// Type identifies the container format of a backup file.
type Type string

const (
	Crypt12     Type = "crypt12"
	Crypt14     Type = "crypt14"
	Crypt15     Type = "crypt15"
	Unencrypted Type = "unencrypted"
)

const (
	ivSize     = 16
	footerSize = 20
)

// Layout holds the byte offsets of one container format.
type Layout struct {
	Type    Type
	IVStart int
	// BodyStarts lists candidate ciphertext offsets in the order they are tried.
	BodyStarts []int
	// FooterAlways is set when the trailing footer is present regardless of length.
	FooterAlways bool
	MinSize      int
}

// IV returns the IV window of data.
func (l Layout) IV(data []byte) []byte {
	return data[l.IVStart : l.IVStart+ivSize]
}

// Body returns the ciphertext region starting at start. The trailing footer
// is excluded unless the container is too short to carry one.
func (l Layout) Body(data []byte, start int) []byte {
	if start > len(data) {
		return nil
	}
	if l.FooterAlways || len(data) > start+footerSize {
		end := len(data) - footerSize
		if end < start {
			return nil
		}
		return data[start:end]
	}
	return data[start:]
}

// Footer returns the trailing footer excluded by Body, or nil when the
// container is too short to carry one.
func (l Layout) Footer(data []byte, start int) []byte {
	if start > len(data) || len(data)-footerSize < start {
		return nil
	}
	if l.FooterAlways || len(data) > start+footerSize {
		return data[len(data)-footerSize:]
	}
	return nil
}

func bodyWindow(from, to int) []int {
	starts := make([]int, 0, to-from+1)
	for off := from; off <= to; off++ {
		starts = append(starts, off)
	}
	return starts
}

var layouts = map[Type]Layout{
	Crypt12: {Type: Crypt12, IVStart: 51, BodyStarts: []int{67}, FooterAlways: true, MinSize: 87},
	Crypt14: {Type: Crypt14, IVStart: 67, BodyStarts: bodyWindow(185, 195), MinSize: 195},
	// Crypt15 reuses the crypt14 IV window with a fixed body start. Real crypt15
	// files use a protobuf header of variable length; this layout only covers
	// containers written with the same framing as crypt14.
	Crypt15: {Type: Crypt15, IVStart: 67, BodyStarts: []int{195}, MinSize: 195},
}

// LayoutFor returns the layout of t. Unencrypted has no layout.
func LayoutFor(t Type) (Layout, bool) {
	l, ok := layouts[t]
	return l, ok
}

// typeFromExt maps a file extension to a container type.
func typeFromExt(name string) (Type, bool) {
	switch {
	case strings.HasSuffix(name, ".crypt12"):
		return Crypt12, true
	case strings.HasSuffix(name, ".crypt14"):
		return Crypt14, true
	case strings.HasSuffix(name, ".crypt15"):
		return Crypt15, true
	}
	return "", false
}
