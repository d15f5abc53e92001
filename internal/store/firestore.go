package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"bizonboard/internal/config"
	"bizonboard/internal/logging"
	"bizonboard/internal/profile"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore stores one document per account in a flat collection. Update runs
// in a Firestore transaction, which the SDK retries on contention.
type Firestore struct {
	client      *firestore.Client
	collection  string
	maxAttempts int
}

// NewFirestore builds a client from service account fields when all three are
// present, otherwise from Application Default Credentials.
func NewFirestore(ctx context.Context, cfg config.FirestoreConfig, collection string) (*Firestore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewFirestore")
	defer timer.Stop()

	if err := checkCollection(collection); err != nil {
		return nil, err
	}

	opts, err := firestoreOptions(cfg)
	if err != nil {
		return nil, err
	}
	projectID := cfg.ProjectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}

	var client *firestore.Client
	if cfg.DatabaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, cfg.DatabaseID, opts...)
	} else {
		client, err = firestore.NewClient(ctx, projectID, opts...)
	}
	if err != nil {
		return nil, unavailable("connect firestore", err)
	}

	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 5
	}
	logging.Store("Firestore profile store ready (project=%s collection=%s)", cfg.ProjectID, collection)
	return &Firestore{client: client, collection: collection, maxAttempts: attempts}, nil
}

type serviceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

func firestoreOptions(cfg config.FirestoreConfig) ([]option.ClientOption, error) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") != "" {
		logging.StoreDebug("FIRESTORE_EMULATOR_HOST set, skipping credentials")
		return nil, nil
	}
	if !cfg.HasCredentials() {
		if cfg.ForceKey {
			return nil, fmt.Errorf("firestore: FIREBASE_FORCE_KEY set without a complete service account")
		}
		logging.Store("Firestore using Application Default Credentials")
		return nil, nil
	}
	creds, err := json.Marshal(serviceAccount{
		Type:        "service_account",
		ProjectID:   cfg.ProjectID,
		ClientEmail: cfg.ClientEmail,
		PrivateKey:  cfg.PrivateKey,
		TokenURI:    "https://oauth2.googleapis.com/token",
	})
	if err != nil {
		return nil, fmt.Errorf("firestore: encode credentials: %w", err)
	}
	return []option.ClientOption{option.WithCredentialsJSON(creds)}, nil
}

func (f *Firestore) doc(accountID string) *firestore.DocumentRef {
	return f.client.Collection(f.collection).Doc(accountID)
}

func (f *Firestore) Name() string { return "firestore" }

func (f *Firestore) Get(ctx context.Context, accountID string) (*profile.Profile, error) {
	snap, err := f.doc(accountID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	return fromSnapshot(snap)
}

func (f *Firestore) Create(ctx context.Context, p *profile.Profile) error {
	_, err := f.doc(p.AccountID).Create(ctx, p)
	if status.Code(err) == codes.AlreadyExists {
		return profile.ErrAlreadyExists
	}
	if err != nil {
		return unavailable("create", err)
	}
	return nil
}

func (f *Firestore) Put(ctx context.Context, p *profile.Profile) error {
	if _, err := f.doc(p.AccountID).Set(ctx, p); err != nil {
		return unavailable("put", err)
	}
	return nil
}

func (f *Firestore) Update(ctx context.Context, accountID string, fn profile.UpdateFunc) (*profile.Profile, error) {
	ref := f.doc(accountID)
	var out *profile.Profile
	var fnErr error

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		fnErr = nil
		var cur *profile.Profile
		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return err
		default:
			if cur, err = fromSnapshot(snap); err != nil {
				return err
			}
		}

		next, err := fn(cur)
		if err != nil {
			fnErr = err
			return err
		}
		if next, err = prepare(accountID, next); err != nil {
			fnErr = err
			return err
		}
		out = next
		return tx.Set(ref, next)
	}, firestore.MaxAttempts(f.maxAttempts))

	switch {
	case err == nil:
		return out, nil
	case fnErr != nil:
		return nil, fnErr
	case status.Code(err) == codes.Aborted:
		return nil, profile.ErrTransactionConflict
	default:
		return nil, unavailable("update", err)
	}
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (*profile.Profile, error) {
	var p profile.Profile
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w: %w", snap.Ref.ID, profile.ErrPersistenceUnavailable, err)
	}
	if p.AccountID == "" {
		p.AccountID = snap.Ref.ID
	}
	return &p, nil
}
