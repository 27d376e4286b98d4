// Package mongo wraps the MongoDB driver client used by the metadata repository.
package mongo

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Laisky/laisky-cloud-drive/library/log"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultHeartbeat = 10 * time.Second
)

// DB is the handle shared by every DAO.
type DB interface {
	Close(ctx context.Context) error
	GetCol(colName string) *mongo.Collection
	CurrentDB() *mongo.Database
}

// DialInfo defines the MongoDB connection information.
type DialInfo struct {
	Addr,
	DBName,
	User,
	Pwd string
	AuthDB string
}

// URI renders the dial info as a mongodb:// connection string.
func (d DialInfo) URI() string {
	uri := &url.URL{
		Scheme: "mongodb",
		Host:   d.Addr,
		Path:   "/" + d.DBName,
	}
	if d.User != "" || d.Pwd != "" {
		uri.User = url.UserPassword(d.User, d.Pwd)
	}
	if d.AuthDB != "" {
		query := url.Values{}
		query.Set("authSource", d.AuthDB)
		uri.RawQuery = query.Encode()
	}
	return uri.String()
}

type db struct {
	mu       sync.RWMutex
	cli      *mongo.Client
	dialInfo DialInfo
}

// overridden in tests
var (
	connectMongo = func(ctx context.Context, clientOpts *options.ClientOptions) (*mongo.Client, error) {
		return mongo.Connect(ctx, clientOpts)
	}
	pingMongo = func(ctx context.Context, cli *mongo.Client) error {
		return cli.Ping(ctx, readpref.Primary())
	}
	disconnectMongo = func(ctx context.Context, cli *mongo.Client) error {
		return cli.Disconnect(ctx)
	}
)

// NewDB connects to mongodb and pings the primary so failures surface at startup.
// Reconnects are left to the driver's pool.
func NewDB(ctx context.Context, dialInfo DialInfo) (DB, error) {
	log.Logger.Info("try to connect to mongodb",
		zap.String("addr", dialInfo.Addr),
		zap.String("db", dialInfo.DBName),
	)

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(dialInfo.URI()).
		SetConnectTimeout(defaultTimeout).
		SetServerSelectionTimeout(defaultTimeout).
		SetHeartbeatInterval(defaultHeartbeat).
		SetRetryReads(true).
		SetRetryWrites(true).
		SetMaxPoolSize(100).
		SetMaxConnIdleTime(300 * time.Second)

	cli, err := connectMongo(ctx, clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, "connect db")
	}
	if err := pingMongo(ctx, cli); err != nil {
		_ = disconnectMongo(context.Background(), cli)
		return nil, errors.Wrap(err, "ping db")
	}

	return &db{cli: cli, dialInfo: dialInfo}, nil
}

// CurrentDB returns the database named in the dial info.
func (d *db) CurrentDB() *mongo.Database {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cli.Database(d.dialInfo.DBName)
}

// GetCol returns a collection handle by name.
func (d *db) GetCol(colName string) *mongo.Collection {
	return d.CurrentDB().Collection(colName)
}

// Close disconnects the client. Calling it twice is a no-op.
func (d *db) Close(ctx context.Context) error {
	d.mu.Lock()
	cli := d.cli
	d.cli = nil
	d.mu.Unlock()
	if cli == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	closeCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := disconnectMongo(closeCtx, cli); err != nil {
		return errors.Wrap(err, "disconnect db")
	}
	return nil
}
