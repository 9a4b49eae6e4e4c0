package models

import "math"

// embeddingToBlob converts []float32 to little-endian BLOB data
func embeddingToBlob(embedding []float32) []byte {
	if len(embedding) == 0 {
		return nil
	}

	data := make([]byte, len(embedding)*4) // 4 bytes per float32
	for i, val := range embedding {
		offset := i * 4
		bits := math.Float32bits(val)
		data[offset] = byte(bits)
		data[offset+1] = byte(bits >> 8)
		data[offset+2] = byte(bits >> 16)
		data[offset+3] = byte(bits >> 24)
	}
	return data
}

// blobToEmbedding converts little-endian BLOB data back to []float32
func blobToEmbedding(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}

	embedding := make([]float32, len(data)/4)
	for i := 0; i < len(embedding); i++ {
		offset := i * 4
		bits := uint32(data[offset]) |
			uint32(data[offset+1])<<8 |
			uint32(data[offset+2])<<16 |
			uint32(data[offset+3])<<24
		embedding[i] = math.Float32frombits(bits)
	}
	return embedding
}
