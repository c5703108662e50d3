package testsupport

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// WriteRecording writes a PCM WAV file with size bytes of sample data at path
// and returns path. A size <= 0 writes an empty file, which recording
// validation rejects.
func WriteRecording(t testing.TB, path string, size int) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if size <= 0 {
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		return path
	}

	header := make([]byte, 44)
	copy(header[0:], "RIFF")
	binary.LittleEndian.PutUint32(header[4:], uint32(36+size))
	copy(header[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], 1)
	binary.LittleEndian.PutUint16(header[22:], 1)
	binary.LittleEndian.PutUint32(header[24:], 16000)
	binary.LittleEndian.PutUint32(header[28:], 32000)
	binary.LittleEndian.PutUint16(header[32:], 2)
	binary.LittleEndian.PutUint16(header[34:], 16)
	copy(header[36:], "data")
	binary.LittleEndian.PutUint32(header[40:], uint32(size))

	data := make([]byte, size)
	for i := range data {
		data[i] = 0x42
	}
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteBytes writes exactly size bytes to path.
func WriteBytes(t testing.TB, path string, size int) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
