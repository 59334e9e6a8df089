package loader

import (
	"context"
	"time"

	bolt "go.etcd.io/bbolt"
)

const fragmentsBucket = "fragments"

// Disk persists the fragments of a backing loader in a bolt database, so a
// later process can render without reaching the origin.
type Disk struct {
	db   *bolt.DB
	next Loader
}

// OpenDisk opens or creates the cache database at path. A nil next makes the
// cache read-only.
func OpenDisk(path string, next Loader) (*Disk, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(fragmentsBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Disk{db: db, next: next}, nil
}

func (d *Disk) Load(ctx context.Context, src string) ([]byte, error) {
	var data []byte
	err := d.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(fragmentsBucket)).Get([]byte(src)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, failed("loader.Disk", src, err)
	}
	if data != nil {
		return data, nil
	}
	if d.next == nil {
		return nil, notFound("loader.Disk", src)
	}
	data, err = d.next.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	if err := d.Put(src, data); err != nil {
		return nil, failed("loader.Disk", src, err)
	}
	return data, nil
}

// Put stores data under src.
func (d *Disk) Put(src string, data []byte) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(fragmentsBucket)).Put([]byte(src), data)
	})
}

// Keys lists the cached sources in key order.
func (d *Disk) Keys() ([]string, error) {
	var keys []string
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(fragmentsBucket)).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// Close releases the database.
func (d *Disk) Close() error { return d.db.Close() }
