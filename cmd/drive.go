package cmd

import (
	"context"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gutils "github.com/Laisky/go-utils/v6"
	"github.com/Laisky/zap"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Laisky/laisky-cloud-drive/internal/drive/files"
	"github.com/Laisky/laisky-cloud-drive/library/blob"
	"github.com/Laisky/laisky-cloud-drive/library/db/mongo"
	"github.com/Laisky/laisky-cloud-drive/library/db/redis"
	"github.com/Laisky/laisky-cloud-drive/library/log"
)

const (
	backendMongo  = "mongo"
	backendMinio  = "minio"
	backendMemory = "memory"
)

// drive holds the wired file service and the resources it owns.
type drive struct {
	svc *files.Service
	// mongoRepo is nil when metadata lives in memory.
	mongoRepo *files.MongoRepository
	closers   []func(context.Context) error
}

// Close releases every backend connection.
func (d *drive) Close(ctx context.Context) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			log.Logger.Warn("close drive backend", zap.Error(err))
		}
	}
}

// setupDrive builds the metadata repository, blob store and listing cache from settings.
func setupDrive(ctx context.Context) (*drive, error) {
	clock := files.Clock(gutils.Clock.GetUTCNow)
	settings := files.LoadSettingsFromConfig()
	d := &drive{}

	var repo files.Repository
	switch backend := gconfig.Shared.GetString("settings.drive.metadata.backend"); backend {
	case "", backendMongo:
		db, err := mongo.NewDB(ctx, mongo.DialInfo{
			Addr:   gconfig.Shared.GetString("settings.db.mongo.addr"),
			DBName: gconfig.Shared.GetString("settings.db.mongo.db"),
			User:   gconfig.Shared.GetString("settings.db.mongo.user"),
			Pwd:    gconfig.Shared.GetString("settings.db.mongo.pwd"),
			AuthDB: gconfig.Shared.GetString("settings.db.mongo.auth_db"),
		})
		if err != nil {
			return nil, errors.Wrap(err, "connect mongo")
		}
		d.closers = append(d.closers, db.Close)
		d.mongoRepo = files.NewMongoRepository(db, clock)
		repo = d.mongoRepo
	case backendMemory:
		log.Logger.Warn("file metadata is kept in memory and will be lost on restart")
		repo = files.NewMemoryRepository(clock)
	default:
		return nil, errors.Errorf("unknown metadata backend %q", backend)
	}

	var blobs files.BlobStore
	switch backend := gconfig.Shared.GetString("settings.drive.blob.backend"); backend {
	case "", backendMinio:
		store, err := blob.NewMinioStore(ctx, blob.Options{
			Endpoint:  gconfig.Shared.GetString("settings.drive.blob.endpoint"),
			AccessKey: gconfig.Shared.GetString("settings.drive.blob.access_key"),
			SecretKey: gconfig.Shared.GetString("settings.drive.blob.secret_key"),
			Secure:    gconfig.Shared.GetBool("settings.drive.blob.secure"),
			Bucket:    gconfig.Shared.GetString("settings.drive.blob.bucket"),
			Prefix:    gconfig.Shared.GetString("settings.drive.blob.prefix"),
		})
		if err != nil {
			d.Close(ctx)
			return nil, errors.Wrap(err, "connect blob store")
		}
		blobs = store
	case backendMemory:
		log.Logger.Warn("blobs are kept in memory and will be lost on restart")
		blobs = blob.NewMemoryStore(clock)
	default:
		d.Close(ctx)
		return nil, errors.Errorf("unknown blob backend %q", backend)
	}

	var cache files.ListingCache = files.NopListingCache{}
	if settings.Cache.Enabled {
		rdb := redis.NewDB(&goredis.Options{
			Addr:     gconfig.Shared.GetString("settings.db.redis.addr"),
			Password: gconfig.Shared.GetString("settings.db.redis.pwd"),
			DB:       gconfig.Shared.GetInt("settings.db.redis.db"),
		})
		d.closers = append(d.closers, func(context.Context) error { return rdb.Close() })
		if err := rdb.Ping(ctx); err != nil {
			d.Close(ctx)
			return nil, errors.Wrap(err, "connect redis")
		}
		cache = files.NewRedisListingCache(rdb.Client(), rdb.Utils(), settings.Cache.Prefix, settings.Cache.TTL)
	}

	svc, err := files.NewService(repo, blobs, cache, settings, log.Logger.Named("drive"), clock)
	if err != nil {
		d.Close(ctx)
		return nil, errors.Wrap(err, "new file service")
	}
	d.svc = svc

	log.Logger.Info("drive ready",
		zap.Int64("quota_cap_bytes", settings.QuotaCapBytes),
		zap.Int64("max_upload_bytes", settings.MaxUploadBytes),
		zap.Bool("listing_cache", settings.Cache.Enabled))
	return d, nil
}
