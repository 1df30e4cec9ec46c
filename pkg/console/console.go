package console

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/voxdeck/voxdeck/pkg/backend"
	"github.com/voxdeck/voxdeck/pkg/chat"
	"github.com/voxdeck/voxdeck/pkg/knowledge"
	"github.com/voxdeck/voxdeck/pkg/kv"
	"github.com/voxdeck/voxdeck/pkg/preset"
	"github.com/voxdeck/voxdeck/pkg/storage"
	"github.com/voxdeck/voxdeck/pkg/toolset"
	"github.com/voxdeck/voxdeck/pkg/uicache"
	"github.com/voxdeck/voxdeck/pkg/usage"
)

// Console is the initialized operator runtime. It opens the platform
// client and the local cache from the current context and provides
// Apply/Get/List/Delete over declarative resources plus accessors for
// the per-area services.
type Console struct {
	config  *ConfigStore
	client  *backend.Client
	kv      kv.Store
	cache   *uicache.Cache
	files   storage.FileStore
	tools   *toolset.Manager
	schemas *SchemaRegistry
	ownsKV  bool // true if Console opened the KV (should close it)
}

// Option configures Console creation.
type Option func(*options)

type options struct {
	kv     kv.Store
	client *backend.Client
	files  storage.FileStore
}

// WithKV injects a cache store (for testing with kv.Memory).
func WithKV(store kv.Store) Option {
	return func(o *options) { o.kv = store }
}

// WithClient injects a platform client (for testing against a stub
// platform).
func WithClient(client *backend.Client) Option {
	return func(o *options) { o.client = client }
}

// WithFileStore injects an upload store.
func WithFileStore(files storage.FileStore) Option {
	return func(o *options) { o.files = files }
}

// New creates a Console from the current context, opening whatever the
// options do not inject. A session persisted by a previous sign-in is
// restored onto the client.
func New(ctx context.Context, cfg *ConfigStore, opts ...Option) (*Console, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	client := o.client
	if client == nil {
		opened, err := openClientFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		client = opened
	}

	kvStore := o.kv
	ownsKV := false
	if kvStore == nil {
		opened, err := openKVFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		kvStore = opened
		ownsKV = true
	}

	files := o.files
	if files == nil {
		opened, err := openFileStoreFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		files = opened
	}

	cache := uicache.New(kvStore)
	c := &Console{
		config:  cfg,
		client:  client,
		kv:      kvStore,
		cache:   cache,
		files:   files,
		tools:   toolset.NewManager(client, cache),
		schemas: NewSchemaRegistry(),
		ownsKV:  ownsKV,
	}

	if sess, ok, err := uicache.Get[backend.Session](ctx, cache, sessionKey()); err != nil {
		// A corrupt persisted session reads as signed out.
		_ = cache.Delete(ctx, sessionKey())
	} else if ok && client.Session() == nil {
		client.SetSession(&sess)
	}
	return c, nil
}

// Client returns the platform client.
func (c *Console) Client() *backend.Client { return c.client }

// Tools returns the tool selection manager.
func (c *Console) Tools() *toolset.Manager { return c.tools }

// Presets returns the preset service.
func (c *Console) Presets() *preset.Service { return preset.NewService(c.client) }

// Chats returns the chat session service.
func (c *Console) Chats() *chat.Service { return chat.NewService(c.client) }

// Usage returns the usage metering service.
func (c *Console) Usage() *usage.Service { return usage.NewService(c.client) }

// Knowledge returns the knowledge base service.
func (c *Console) Knowledge() *knowledge.Service {
	return knowledge.NewService(c.client, c.files)
}

// Close releases all resources. If the KV was injected via WithKV,
// it is NOT closed (the caller owns it).
func (c *Console) Close() error {
	if c.ownsKV && c.kv != nil {
		return c.kv.Close()
	}
	return nil
}

// EmbedHost returns the base URL embed snippets point at, falling back
// to the platform API URL when the context does not set one.
func (c *Console) EmbedHost() (string, error) {
	if c.config == nil {
		return "", fmt.Errorf("console: no config store")
	}
	_, ctxCfg, err := c.config.CtxShow("")
	if err != nil {
		return "", err
	}
	host := ctxCfg.EmbedHost
	if host == "" {
		host = ctxCfg.API
	}
	if host == "" {
		return "", fmt.Errorf("no embed host configured; use 'ctx config set embed_host <url>'")
	}
	return host, nil
}

// ---------------------------------------------------------------------------
// Session lifecycle
// ---------------------------------------------------------------------------

func sessionKey() kv.Key { return kv.Key{"session"} }

// SignIn authenticates against the platform and persists the session
// in the context cache so later invocations start signed in.
func (c *Console) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	sess, err := c.client.Auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := uicache.Put(ctx, c.cache, sessionKey(), *sess); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	return sess, nil
}

// SignOut revokes the platform session and clears the local state
// that belongs to the signed-in view: the persisted session and any
// cached tool snapshots. Local state is cleared even when revocation
// fails.
func (c *Console) SignOut(ctx context.Context) error {
	revokeErr := c.client.Auth.SignOut(ctx)
	if err := c.cache.Delete(ctx, sessionKey()); err != nil {
		return fmt.Errorf("drop session: %w", err)
	}
	if _, err := c.cache.DeletePrefix(ctx, toolset.SnapshotPrefix()); err != nil {
		return fmt.Errorf("drop tool snapshots: %w", err)
	}
	return revokeErr
}

// Whoami returns the signed-in operator, or nil when signed out.
func (c *Console) Whoami() *backend.User {
	sess := c.client.Session()
	if sess == nil {
		return nil
	}
	u := sess.User
	return &u
}

// Invite asks the platform to send a teammate invitation.
func (c *Console) Invite(ctx context.Context, email, role string) error {
	if email == "" {
		return fmt.Errorf("invite: email is required")
	}
	params := map[string]any{"email": email}
	if role != "" {
		params["role"] = role
	}
	return c.client.Functions.Invoke(ctx, backend.FnInviteUser, params, nil)
}

// ---------------------------------------------------------------------------
// Declarative resources
// ---------------------------------------------------------------------------

// Apply validates and writes documents to the platform. This is the
// single write entry point for declarative resources; each document is
// matched to an existing row by its schema and either updates it or
// inserts a new one.
func (c *Console) Apply(ctx context.Context, docs []Document) ([]ApplyResult, error) {
	var results []ApplyResult
	for i, doc := range docs {
		result, err := c.applyOne(ctx, doc)
		if err != nil {
			return results, fmt.Errorf("document %d (kind=%s): %w", i, doc.Kind, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func (c *Console) applyOne(ctx context.Context, doc Document) (ApplyResult, error) {
	schema := c.schemas.Get(doc.Kind)
	if schema == nil {
		return ApplyResult{}, fmt.Errorf("unknown kind %q", doc.Kind)
	}
	if err := schema.Validate(doc.Fields); err != nil {
		return ApplyResult{}, err
	}

	fields := maps.Clone(doc.Fields)
	if schema.PrepareFn != nil {
		if err := schema.PrepareFn(ctx, c, fields); err != nil {
			return ApplyResult{}, err
		}
	}

	existing, err := c.client.Rows.List(ctx, schema.Collection, backend.Query{
		Filter: schema.Match(fields),
		Limit:  1,
	})
	if err != nil {
		return ApplyResult{}, fmt.Errorf("find existing: %w", err)
	}

	name := doc.Name()
	if len(existing) > 0 {
		id := existing[0].GetString("id")
		if _, err := c.client.Rows.Update(ctx, schema.Collection,
			backend.Filter{"id": id}, backend.Row(fields)); err != nil {
			return ApplyResult{}, fmt.Errorf("update: %w", err)
		}
		return ApplyResult{Kind: doc.Kind, Name: name, ID: id, Status: "updated"}, nil
	}

	row := backend.Row(fields)
	row["id"] = uuid.NewString()
	if schema.CreateFn != nil {
		schema.CreateFn(row)
	}
	if _, err := c.client.Rows.Insert(ctx, schema.Collection, []backend.Row{row}); err != nil {
		return ApplyResult{}, fmt.Errorf("insert: %w", err)
	}
	return ApplyResult{Kind: doc.Kind, Name: name, ID: row.GetString("id"), Status: "created"}, nil
}

// Get retrieves a single document by kind and name.
func (c *Console) Get(ctx context.Context, kind, name string) (*Document, error) {
	schema, rows, err := c.find(ctx, kind, name)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", kind, name, err)
	}
	return c.document(schema, rows[0]), nil
}

// List returns documents of a kind, newest first.
func (c *Console) List(ctx context.Context, kind string, opts ListOpts) ([]Document, error) {
	schema := c.schemas.Get(kind)
	if schema == nil {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	if opts.All {
		limit = 0
	}
	rows, err := c.client.Rows.List(ctx, schema.Collection, backend.Query{
		OrderBy: "created_at",
		Desc:    true,
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, *c.document(schema, row))
	}
	return docs, nil
}

// Delete removes a single document by kind and name, then runs the
// kind's cleanup for dependent rows and cache state.
func (c *Console) Delete(ctx context.Context, kind, name string) error {
	schema, rows, err := c.find(ctx, kind, name)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", kind, name, err)
	}
	id := rows[0].GetString("id")
	if _, err := c.client.Rows.Delete(ctx, schema.Collection, backend.Filter{"id": id}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", kind, name, err)
	}
	if schema.CleanupFn != nil {
		if err := schema.CleanupFn(ctx, c, id); err != nil {
			return fmt.Errorf("delete %s/%s: cleanup: %w", kind, name, err)
		}
	}
	return nil
}

// find locates the unique row a kind/name pair refers to.
func (c *Console) find(ctx context.Context, kind, name string) (*Schema, []backend.Row, error) {
	schema := c.schemas.Get(kind)
	if schema == nil {
		return nil, nil, fmt.Errorf("unknown kind %q", kind)
	}
	rows, err := c.client.Rows.List(ctx, schema.Collection, backend.Query{
		Filter: backend.Filter{"name": name},
		Limit:  2,
	})
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("not found")
	}
	if len(rows) > 1 {
		return nil, nil, fmt.Errorf("name matches %d rows", len(rows))
	}
	return schema, rows, nil
}

// document converts a platform row into an output document, applying
// the kind's redaction.
func (c *Console) document(schema *Schema, row backend.Row) *Document {
	fields := make(map[string]any, len(row))
	maps.Copy(fields, row)
	if schema.RedactFn != nil {
		schema.RedactFn(fields)
	}
	return &Document{Kind: schema.Kind, Fields: fields}
}

// presetByName resolves a preset reference used in apply documents.
func (c *Console) presetByName(ctx context.Context, name string) (*preset.Preset, error) {
	p, err := c.Presets().GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, preset.ErrNotFound) {
			return nil, fmt.Errorf("preset %q not found", name)
		}
		return nil, err
	}
	return p, nil
}

// providerKeyByName resolves a credential reference used in apply
// documents.
func (c *Console) providerKeyByName(ctx context.Context, name string) (*preset.ProviderKey, error) {
	rows, err := c.client.Rows.List(ctx, backend.CollectionProviderKeys, backend.Query{
		Filter: backend.Filter{"name": name},
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("provider key %q not found", name)
	}
	return preset.ProviderKeyFromRow(rows[0])
}

// ---------------------------------------------------------------------------
// Store opening
// ---------------------------------------------------------------------------

// openClientFromConfig builds the platform client from the current ctx
// config.
func openClientFromConfig(cfg *ConfigStore) (*backend.Client, error) {
	name, ctxCfg, err := cfg.CtxShow("")
	if err != nil {
		return nil, err
	}
	if ctxCfg.API == "" || ctxCfg.AnonKey == "" {
		return nil, fmt.Errorf("context %q has no api/anon_key configured; use 'ctx config set'", name)
	}
	var opts []backend.Option
	if ctxCfg.Timeout != "" {
		d, err := time.ParseDuration(ctxCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("context %q: bad timeout %q: %w", name, ctxCfg.Timeout, err)
		}
		opts = append(opts, backend.WithTimeout(d))
	}
	return backend.NewClient(ctxCfg.API, ctxCfg.AnonKey, opts...), nil
}

// openKVFromConfig opens the cache store named by the current ctx
// config, defaulting to a badger store inside the context directory.
func openKVFromConfig(cfg *ConfigStore) (kv.Store, error) {
	name, ctxCfg, err := cfg.CtxShow("")
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	cacheURL := ctxCfg.Cache
	if cacheURL == "" {
		cacheURL = "badger://" + filepath.Join(cfg.contextDir(name), "cache")
	}
	return openKVByURL(cacheURL)
}

// openKVByURL opens a cache store from a URL like "badger:///path" or
// "memory://".
func openKVByURL(rawURL string) (kv.Store, error) {
	switch {
	case strings.HasPrefix(rawURL, "badger://"):
		path := strings.TrimPrefix(rawURL, "badger://")
		return kv.NewBadger(kv.BadgerOptions{Dir: path})
	case rawURL == "memory://":
		return kv.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported cache URL scheme: %s", rawURL)
	}
}

// openFileStoreFromConfig opens the upload store named by the current
// ctx config. No configured store is not an error; knowledge imports
// then report the missing store when used.
func openFileStoreFromConfig(cfg *ConfigStore) (storage.FileStore, error) {
	_, ctxCfg, err := cfg.CtxShow("")
	if err != nil {
		return nil, fmt.Errorf("open uploads: %w", err)
	}
	if ctxCfg.Uploads == "" {
		return nil, nil
	}
	return openFileStoreByURL(ctxCfg.Uploads)
}

// openFileStoreByURL opens an upload store from "file:///dir" or
// "s3://bucket/prefix?region=...&endpoint=...&pathstyle=true".
func openFileStoreByURL(rawURL string) (storage.FileStore, error) {
	switch {
	case strings.HasPrefix(rawURL, "file://"):
		return storage.NewLocal(strings.TrimPrefix(rawURL, "file://"))
	case strings.HasPrefix(rawURL, "s3://"):
		return openS3(rawURL)
	default:
		return nil, fmt.Errorf("unsupported uploads URL scheme: %s", rawURL)
	}
}

// openS3 builds an S3-backed upload store. Credentials come from the
// standard AWS environment variables; the SDK's config loader modules
// are not linked in.
func openS3(rawURL string) (storage.FileStore, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse uploads URL: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("uploads URL %q has no bucket", rawURL)
	}
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("s3 uploads need AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY set")
	}
	creds := aws.Credentials{
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
	}

	q := u.Query()
	opts := s3.Options{
		Region:       q.Get("region"),
		UsePathStyle: q.Get("pathstyle") == "true",
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return creds, nil
		}),
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if ep := q.Get("endpoint"); ep != "" {
		opts.BaseEndpoint = aws.String(ep)
	}
	return storage.NewS3(s3.New(opts), u.Host, strings.TrimPrefix(u.Path, "/")), nil
}
