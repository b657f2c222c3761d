package config

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/jrhy/merkstore/mast"
	"github.com/jrhy/merkstore/merk"
	"github.com/jrhy/merkstore/persist/bolt"
	"github.com/jrhy/merkstore/persist/file"
	"github.com/jrhy/merkstore/persist/leveldb"
	s3Persist "github.com/jrhy/merkstore/persist/s3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var nopCloser = closerFunc(func() error { return nil })

// OpenBackend opens the configured persistence backend. The closer
// releases any database handle.
func (c *StoreConfig) OpenBackend(ctx context.Context) (mast.Backend, io.Closer, error) {
	switch c.Backend {
	case BackendMemory:
		return mast.NewInMemoryStore(), nopCloser, nil
	case BackendFile:
		p, err := file.NewPersistForPath(c.Path)
		if err != nil {
			return nil, nil, err
		}
		return p, nopCloser, nil
	case BackendBolt:
		p, err := bolt.Open(c.Path)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	case BackendLevelDB:
		p, err := leveldb.Open(c.Path)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	case BackendS3:
		awsConfig := &aws.Config{Region: aws.String(c.S3.Region)}
		if c.S3.Endpoint != "" {
			awsConfig.Endpoint = aws.String(c.S3.Endpoint)
			awsConfig.S3ForcePathStyle = aws.Bool(true)
		}
		sess, err := session.NewSession(awsConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("aws session: %w", err)
		}
		return s3Persist.NewPersist(s3.New(sess), c.S3.Bucket, c.S3.Prefix), nopCloser, nil
	}
	return nil, nil, ErrInvalidBackend
}

// Open opens the configured backend and the authenticated store on it.
func (c *Config) Open(ctx context.Context, log *zap.Logger) (*merk.Store, io.Closer, error) {
	backend, closer, err := c.Store.OpenBackend(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s backend: %w", c.Store.Backend, err)
	}
	tree, err := mast.Open(ctx, mast.Config{
		Backend:          backend,
		BranchFactor:     c.Store.BranchFactor,
		NodeCache:        mast.NewNodeCache(c.Store.NodeCacheSize),
		StoreParallelism: c.Store.StoreParallelism,
		Logger:           log.Named("mast"),
	})
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	opts := []merk.Option{merk.WithContext(ctx), merk.WithLogger(log.Named("merk"))}
	if c.Store.IncreasingHeights {
		opts = append(opts, merk.WithIncreasingHeights())
	}
	s, err := merk.New(tree, opts...)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return s, closer, nil
}

// NewLogger builds the configured logger, writing to stderr.
func (c *LoggingConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLogLevel, err)
	}
	var encoder zapcore.Encoder
	switch c.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "console":
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	default:
		return nil, ErrInvalidLogFormat
	}
	atom := zap.NewAtomicLevelAt(level)
	return zap.New(zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), atom)), nil
}
