package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	UsersBucket  = []byte("users")  // username -> user record
	VaultsBucket = []byte("vaults") // nested bucket per username
	AuditBucket  = []byte("audit")  // sequence -> audit record
	ConfigBucket = []byte("config") // version, timestamps
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUserExists     = errors.New("user already exists")
	ErrRecordNotFound = errors.New("record not found")
	ErrRecordExists   = errors.New("record already exists")
)

// Storage provides BBolt-based storage for passvault
type Storage struct {
	db *bolt.DB
}

// Open opens or creates a passvault database. BBolt holds an exclusive
// file lock, so a second process opening the same vault fails after the
// timeout instead of blocking forever.
func Open(path string) (*Storage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Initialize creates the bucket structure for a new vault database
func (s *Storage) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{UsersBucket, VaultsBucket, AuditBucket, ConfigBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}
		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}

		now := time.Now()
		created, _ := now.MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigModified, created)
	})
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// touchModified updates the last modified timestamp inside tx
func touchModified(tx *bolt.Tx) error {
	config := tx.Bucket(ConfigBucket)
	if config == nil {
		return nil
	}
	now, _ := time.Now().MarshalBinary()
	return config.Put(ConfigModified, now)
}

// CreateUser stores a new user record, failing with ErrUserExists if the
// username is already taken.
func (s *Storage) CreateUser(user *UserRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		users := tx.Bucket(UsersBucket)
		if users == nil {
			return fmt.Errorf("users bucket not found")
		}
		if users.Get([]byte(user.Username)) != nil {
			return ErrUserExists
		}
		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("failed to marshal user: %w", err)
		}
		if err := users.Put([]byte(user.Username), data); err != nil {
			return err
		}
		return touchModified(tx)
	})
}

// GetUser retrieves a user record by username
func (s *Storage) GetUser(username string) (*UserRecord, error) {
	var user *UserRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		users := tx.Bucket(UsersBucket)
		if users == nil {
			return fmt.Errorf("users bucket not found")
		}
		data := users.Get([]byte(username))
		if data == nil {
			return ErrUserNotFound
		}
		user = &UserRecord{}
		return json.Unmarshal(data, user)
	})
	return user, err
}

// PutUser overwrites an existing user record
func (s *Storage) PutUser(user *UserRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		users := tx.Bucket(UsersBucket)
		if users == nil {
			return fmt.Errorf("users bucket not found")
		}
		if users.Get([]byte(user.Username)) == nil {
			return ErrUserNotFound
		}
		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("failed to marshal user: %w", err)
		}
		return users.Put([]byte(user.Username), data)
	})
}

// vaultBucket returns the nested per-user bucket, or nil if absent
func vaultBucket(tx *bolt.Tx, username string) *bolt.Bucket {
	vaults := tx.Bucket(VaultsBucket)
	if vaults == nil {
		return nil
	}
	return vaults.Bucket([]byte(username))
}

// CreateRecord stores a new credential record for the user, failing with
// ErrRecordExists if the domain is already present.
func (s *Storage) CreateRecord(username string, rec *CredentialRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		vaults := tx.Bucket(VaultsBucket)
		if vaults == nil {
			return fmt.Errorf("vaults bucket not found")
		}
		bucket, err := vaults.CreateBucketIfNotExists([]byte(username))
		if err != nil {
			return fmt.Errorf("failed to create vault bucket: %w", err)
		}
		if bucket.Get([]byte(rec.Domain)) != nil {
			return ErrRecordExists
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		if err := bucket.Put([]byte(rec.Domain), data); err != nil {
			return err
		}
		return touchModified(tx)
	})
}

// GetRecord retrieves a credential record by domain
func (s *Storage) GetRecord(username, domain string) (*CredentialRecord, error) {
	var rec *CredentialRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := vaultBucket(tx, username)
		if bucket == nil {
			return ErrRecordNotFound
		}
		data := bucket.Get([]byte(domain))
		if data == nil {
			return ErrRecordNotFound
		}
		rec = &CredentialRecord{}
		return json.Unmarshal(data, rec)
	})
	return rec, err
}

// PutRecord overwrites an existing credential record, failing with
// ErrRecordNotFound if the domain is not present.
func (s *Storage) PutRecord(username string, rec *CredentialRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := vaultBucket(tx, username)
		if bucket == nil || bucket.Get([]byte(rec.Domain)) == nil {
			return ErrRecordNotFound
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		if err := bucket.Put([]byte(rec.Domain), data); err != nil {
			return err
		}
		return touchModified(tx)
	})
}

// DeleteRecord removes a credential record, failing with ErrRecordNotFound
// if the domain is not present.
func (s *Storage) DeleteRecord(username, domain string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := vaultBucket(tx, username)
		if bucket == nil || bucket.Get([]byte(domain)) == nil {
			return ErrRecordNotFound
		}
		if err := bucket.Delete([]byte(domain)); err != nil {
			return err
		}
		return touchModified(tx)
	})
}

// ListDomains returns all domains in a user's vault in lexicographic
// (BBolt key) order. An absent vault bucket is an empty vault.
func (s *Storage) ListDomains(username string) ([]string, error) {
	var domains []string
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := vaultBucket(tx, username)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			domains = append(domains, string(k))
			return nil
		})
	})
	return domains, err
}

// ListRecords returns all of a user's credential records in domain order
func (s *Storage) ListRecords(username string) ([]*CredentialRecord, error) {
	var records []*CredentialRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := vaultBucket(tx, username)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			rec := &CredentialRecord{}
			if err := json.Unmarshal(v, rec); err != nil {
				return fmt.Errorf("failed to unmarshal record %s: %w", k, err)
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

// ReplaceVault rewrites a user's entire vault and their user record in a
// single transaction. Either everything commits or nothing does, and the
// user record is written last, after every credential record. Used by
// master password rotation so the persisted vault is never observable in
// a state decryptable under neither key.
func (s *Storage) ReplaceVault(username string, records []*CredentialRecord, user *UserRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		vaults := tx.Bucket(VaultsBucket)
		if vaults == nil {
			return fmt.Errorf("vaults bucket not found")
		}
		if vaults.Bucket([]byte(username)) != nil {
			if err := vaults.DeleteBucket([]byte(username)); err != nil {
				return fmt.Errorf("failed to clear vault: %w", err)
			}
		}
		bucket, err := vaults.CreateBucket([]byte(username))
		if err != nil {
			return fmt.Errorf("failed to recreate vault: %w", err)
		}
		for _, rec := range records {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to marshal record %s: %w", rec.Domain, err)
			}
			if err := bucket.Put([]byte(rec.Domain), data); err != nil {
				return err
			}
		}

		// Authentication metadata commits last, in the same transaction
		users := tx.Bucket(UsersBucket)
		if users == nil {
			return fmt.Errorf("users bucket not found")
		}
		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("failed to marshal user: %w", err)
		}
		if err := users.Put([]byte(user.Username), data); err != nil {
			return err
		}
		return touchModified(tx)
	})
}

// AppendAudit appends one audit record. Keys are monotonically increasing
// 8-byte big-endian sequence numbers, so cursor order is append order.
func (s *Storage) AppendAudit(rec *AuditRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(AuditBucket)
		if bucket == nil {
			return fmt.Errorf("audit bucket not found")
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal audit record: %w", err)
		}
		return bucket.Put(key, data)
	})
}

// ReadAudit returns up to limit audit records, most recent first.
// A limit of zero or less returns everything.
func (s *Storage) ReadAudit(limit int) ([]*AuditRecord, error) {
	var records []*AuditRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(AuditBucket)
		if bucket == nil {
			return fmt.Errorf("audit bucket not found")
		}
		c := bucket.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(records) >= limit {
				break
			}
			rec := &AuditRecord{}
			if err := json.Unmarshal(v, rec); err != nil {
				return fmt.Errorf("failed to unmarshal audit record: %w", err)
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

// GetModified retrieves the last modified timestamp
func (s *Storage) GetModified() (time.Time, error) {
	var modified time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigModified)
		if data == nil {
			return fmt.Errorf("modified time not found")
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

// Stats counts registered users and stored credential records across
// all vaults.
func (s *Storage) Stats() (users, records int, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		if bucket := tx.Bucket(UsersBucket); bucket != nil {
			if err := bucket.ForEach(func(k, v []byte) error {
				users++
				return nil
			}); err != nil {
				return err
			}
		}

		vaults := tx.Bucket(VaultsBucket)
		if vaults == nil {
			return nil
		}
		return vaults.ForEach(func(k, v []byte) error {
			if v != nil {
				return nil
			}
			return vaults.Bucket(k).ForEach(func(k, v []byte) error {
				records++
				return nil
			})
		})
	})
	return users, records, err
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after deleting records to reclaim disk space.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				if err := dstBucket.SetSequence(srcBucket.Sequence()); err != nil {
					return err
				}
				return copyBucket(srcBucket, dstBucket)
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	s.db, err = bolt.Open(srcPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}

// copyBucket copies keys and nested buckets recursively
func copyBucket(src, dst *bolt.Bucket) error {
	return src.ForEach(func(k, v []byte) error {
		if v == nil {
			nestedSrc := src.Bucket(k)
			nestedDst, err := dst.CreateBucketIfNotExists(k)
			if err != nil {
				return err
			}
			return copyBucket(nestedSrc, nestedDst)
		}
		return dst.Put(k, v)
	})
}
