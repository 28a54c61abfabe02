package store

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// codec сжимает JSON документов уровня перед записью в BadgerDB.
// Документы с большим числом сущностей сжимаются в разы: поля-ключи
// JSON повторяются для каждой сущности.
type codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newCodec() (*codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &codec{encoder: enc, decoder: dec}, nil
}

// compress сжимает сырые байты документа.
func (c *codec) compress(raw []byte) []byte {
	return c.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2))
}

// decompress распаковывает байты документа.
func (c *codec) decompress(stored []byte) ([]byte, error) {
	return c.decoder.DecodeAll(stored, nil)
}

func (c *codec) close() {
	c.encoder.Close()
	c.decoder.Close()
}
