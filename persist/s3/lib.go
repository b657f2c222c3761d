package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/hashicorp/golang-lru/simplelru"
)

// CheckpointName is the object, under the prefix, holding the current
// checkpoint record.
const CheckpointName = "CHECKPOINT"

type S3Interface interface {
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
}

// Persist implements the mast.Backend interface for storing and loading
// nodes and the checkpoint as S3 objects.
type Persist struct {
	s3         S3Interface
	BucketName string
	Prefix     string
	// names of nodes known to be stored already
	lru *simplelru.LRU
}

// Load loads the bytes persisted in the named object.
func (p *Persist) Load(ctx context.Context, name string) ([]byte, error) {
	b, err := p.get(ctx, p.Prefix+name)
	if err != nil {
		return nil, err
	}
	p.lru.Add(name, nil)
	return b, nil
}

// Store persists the given bytes in an object of the given name, if it
// isn't known to exist already.
func (p *Persist) Store(ctx context.Context, name string, b []byte) error {
	if p.lru.Contains(name) {
		return nil
	}
	err := p.put(ctx, p.Prefix+name, b)
	if err != nil {
		return err
	}
	p.lru.Add(name, nil)
	return nil
}

// StoreCheckpoint replaces the checkpoint object. A single PUT is
// atomic: readers see either the old or the new record.
func (p *Persist) StoreCheckpoint(ctx context.Context, b []byte) error {
	return p.put(ctx, p.Prefix+CheckpointName, b)
}

// LoadCheckpoint returns the checkpoint object's contents, or nil if
// there is no checkpoint yet.
func (p *Persist) LoadCheckpoint(ctx context.Context) ([]byte, error) {
	b, err := p.get(ctx, p.Prefix+CheckpointName)
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
		return nil, nil
	}
	return b, err
}

func (p *Persist) get(ctx context.Context, key string) ([]byte, error) {
	input := s3.GetObjectInput{
		Bucket: &p.BucketName,
		Key:    aws.String(key),
	}
	output, err := p.s3.GetObjectWithContext(ctx, &input)
	if err != nil {
		return nil, err
	}
	defer output.Body.Close()
	b, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return b, nil
}

func (p *Persist) put(ctx context.Context, key string, b []byte) error {
	input := s3.PutObjectInput{
		Bucket: &p.BucketName,
		Key:    aws.String(key),
		Body:   bytes.NewReader(b),
	}
	_, err := p.s3.PutObjectWithContext(ctx, &input)
	return err
}

// NewPersist returns a Persist that loads and stores nodes as
// objects with the given S3 client, bucket name and key prefix.
func NewPersist(client S3Interface, bucketName, prefix string) *Persist {
	lru, err := simplelru.NewLRU(1000, nil)
	if err != nil {
		panic(err)
	}
	return &Persist{client, bucketName, prefix, lru}
}
