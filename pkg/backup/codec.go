// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package backup

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const zstdExt = ".zst"

// writeBlob writes data to path, zstd-compressed when compress is set.
// The caller picks the file name; compressed files should end in zstdExt.
func writeBlob(path string, data []byte, compress bool) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if !compress {
		_, err = f.Write(data)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return err
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		return err
	}
	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// readBlob reads path, decompressing files that end in zstdExt.
func readBlob(path string) ([]byte, error) {
	if !strings.HasSuffix(path, zstdExt) {
		return os.ReadFile(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return io.ReadAll(dec)
}

func blobName(base string, compress bool) string {
	if compress {
		return base + zstdExt
	}
	return base
}
