package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"os"

	"github.com/klauspost/compress/zlib"
	"github.com/matheus3301/waforensic/internal/keyfile"
	"go.uber.org/zap"
)

// Envelope is the framing written around an encrypted body.
type Envelope struct {
	Type Type
	// Header fills the bytes before the IV; shorter headers are zero padded.
	Header []byte
	IV     []byte
	// BodyStart overrides the layout's first candidate offset when non-zero.
	BodyStart int
	// Footer is the trailing 20 bytes; zero filled when nil.
	Footer []byte
}

// Seal compresses plaintext and encrypts it into a container framed by env.
// The body is bare GCM ciphertext: no tag is written, so the container is
// header, IV, ciphertext and footer.
func Seal(key keyfile.Key, env Envelope, plaintext []byte) ([]byte, error) {
	layout, ok := LayoutFor(env.Type)
	if !ok {
		return nil, fmt.Errorf("seal: no layout for %s", env.Type)
	}
	if len(env.IV) != ivSize {
		return nil, fmt.Errorf("seal: iv is %d bytes, want %d", len(env.IV), ivSize)
	}
	if len(env.Header) > layout.IVStart {
		return nil, fmt.Errorf("seal: header is %d bytes, max %d", len(env.Header), layout.IVStart)
	}
	if len(env.Footer) > footerSize {
		return nil, fmt.Errorf("seal: footer is %d bytes, max %d", len(env.Footer), footerSize)
	}
	start := env.BodyStart
	if start == 0 {
		start = layout.BodyStarts[0]
	}
	if start < layout.IVStart+ivSize {
		return nil, fmt.Errorf("seal: body start %d overlaps iv", start)
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(plaintext); err != nil {
		return nil, fmt.Errorf("seal: deflate: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("seal: deflate: %w", err)
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("seal: aes: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("seal: gcm: %w", err)
	}

	out := make([]byte, start, start+compressed.Len()+footerSize)
	copy(out, env.Header)
	copy(out[layout.IVStart:], env.IV)
	ct := gcm.Seal(nil, env.IV, compressed.Bytes(), nil)
	out = append(out, ct[:compressed.Len()]...)
	footer := make([]byte, footerSize)
	copy(footer, env.Footer)
	return append(out, footer...), nil
}

// EncryptLike encrypts the plaintext database at plainPath into a crypt12
// container at output, reusing the header, IV and footer of reference.
func (d *Decryptor) EncryptLike(plainPath, output, reference string) error {
	layout := layouts[Crypt12]
	ref, err := os.ReadFile(reference)
	if err != nil {
		return fmt.Errorf("read reference: %w", err)
	}
	if len(ref) < layout.MinSize {
		return fmt.Errorf("%w: reference is %d bytes", ErrMalformedContainer, len(ref))
	}
	plain, err := os.ReadFile(plainPath)
	if err != nil {
		return fmt.Errorf("read database: %w", err)
	}

	sealed, err := Seal(d.key, Envelope{
		Type:   Crypt12,
		Header: ref[:layout.IVStart],
		IV:     layout.IV(ref),
		Footer: ref[len(ref)-footerSize:],
	}, plain)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(output, sealed); err != nil {
		return err
	}
	d.logger.Info("encrypted", zap.String("input", plainPath), zap.String("output", output))
	return nil
}
