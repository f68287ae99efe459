package db

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"io"
)

// RecordSerializer turns storage records into the byte representation
// kept in the backend and back.
type RecordSerializer interface {
	Serialize(record interface{}) ([]byte, error)
	Deserialize(value []byte, target interface{}) error
}

type JsonSerializer struct {
}

func (s *JsonSerializer) Serialize(record interface{}) ([]byte, error) {
	return json.Marshal(record)
}

func (s *JsonSerializer) Deserialize(value []byte, target interface{}) error {
	return json.Unmarshal(value, target)
}

func NewZlibEncoder(serializer RecordSerializer) *ZlibEncoder {
	return &ZlibEncoder{serializer}
}

// ZlibEncoder compresses the serialized records. Session and profile
// records are mostly ASCII and shrink well, which matters for large
// deployments.
type ZlibEncoder struct {
	serializer RecordSerializer
}

func (s *ZlibEncoder) Serialize(record interface{}) ([]byte, error) {
	serialized, err := s.serializer.Serialize(record)
	if err != nil {
		return nil, err
	}

	var buff bytes.Buffer
	writer := zlib.NewWriter(&buff)
	_, err = writer.Write(serialized)
	if err != nil {
		return nil, err
	}

	_ = writer.Close()

	return buff.Bytes(), nil
}

func (s *ZlibEncoder) Deserialize(value []byte, target interface{}) error {
	buff := bytes.NewReader(value)
	reader, err := zlib.NewReader(buff)
	if err != nil {
		return err
	}

	resultBuffer := new(bytes.Buffer)
	_, err = io.Copy(resultBuffer, reader)
	if err != nil {
		return err
	}

	_ = reader.Close()

	return s.serializer.Deserialize(resultBuffer.Bytes(), target)
}
