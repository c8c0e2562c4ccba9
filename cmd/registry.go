package cmd

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	_ "github.com/mattn/go-sqlite3"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Laisky/laisky-doc-registry/internal/web/registry/dao"
	"github.com/Laisky/laisky-doc-registry/internal/web/registry/service"
	"github.com/Laisky/laisky-doc-registry/library/auth"
	"github.com/Laisky/laisky-doc-registry/library/db/kv"
	"github.com/Laisky/laisky-doc-registry/library/db/mongo"
	"github.com/Laisky/laisky-doc-registry/library/db/redis"
	sqlkv "github.com/Laisky/laisky-doc-registry/library/db/sql/kv"
	"github.com/Laisky/laisky-doc-registry/library/log"
)

var registryCMD = &cobra.Command{
	Use:   "registry",
	Short: "registry",
	Long:  `manage catalog entries against the configured state store`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := initialize(context.Background(), cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
}

// newStateStore opens the backend selected by settings.registry.backend.
func newStateStore(ctx context.Context) (kv.Store, error) {
	backend := gconfig.Shared.GetString("settings.registry.backend")
	if gconfig.Shared.GetBool("dry") {
		backend = "memory"
	}

	switch backend {
	case "", "memory":
		return kv.NewMemory(), nil
	case "sqlite":
		db, err := sql.Open("sqlite3", gconfig.Shared.GetString("settings.registry.sqlite.path"))
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite")
		}

		store, err := sqlkv.NewKv(db,
			sqlkv.WithTableName(gconfig.Shared.GetString("settings.registry.sqlite.table")))
		if err != nil {
			return nil, errors.Wrap(err, "new sql kv")
		}

		return store, nil
	case "redis":
		return redis.NewDB(&goredis.Options{
			Addr:     gconfig.Shared.GetString("settings.registry.redis.addr"),
			Password: gconfig.Shared.GetString("settings.registry.redis.password"),
			DB:       gconfig.Shared.GetInt("settings.registry.redis.db"),
		}, "doc-registry:"), nil
	case "mongo":
		db, err := mongo.NewDB(ctx, mongo.DialInfo{
			Addr:   gconfig.Shared.GetString("settings.registry.mongo.addr"),
			DBName: gconfig.Shared.GetString("settings.registry.mongo.db"),
			User:   gconfig.Shared.GetString("settings.registry.mongo.user"),
			Pwd:    gconfig.Shared.GetString("settings.registry.mongo.pwd"),
		})
		if err != nil {
			return nil, errors.Wrap(err, "connect mongo")
		}

		return mongo.NewKvCol(db, "registry_state"), nil
	default:
		return nil, errors.Errorf("unknown registry backend %q", backend)
	}
}

func newRegistrySvc(ctx context.Context) (*service.Registry, error) {
	store, err := newStateStore(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "new state store")
	}

	var opts []service.Option
	if gconfig.Shared.GetBool("settings.registry.enforce_read_acl") {
		opts = append(opts, service.WithEnforcedReadACL())
	}

	svc, err := service.New(log.Logger,
		dao.New(log.Logger, store),
		service.ClockHeight{},
		opts...)
	if err != nil {
		return nil, errors.Wrap(err, "new registry service")
	}

	return svc, nil
}

// callerCtx attaches the acting principal from --token or --principal.
func callerCtx(ctx context.Context) (context.Context, error) {
	if token := gconfig.Shared.GetString("token"); token != "" {
		if auth.Instance == nil {
			return nil, errors.New("settings.secret is required to verify tokens")
		}

		principal, err := auth.Instance.PrincipalFromToken(token)
		if err != nil {
			return nil, errors.Wrap(err, "verify token")
		}

		return auth.WithPrincipal(ctx, principal)
	}

	principal := gconfig.Shared.GetString("principal")
	if principal == "" {
		return ctx, nil
	}

	return auth.WithPrincipal(ctx, principal)
}

func parseEntryID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse entry id %q", arg)
	}

	return id, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode output")
	}

	fmt.Println(string(out))
	return nil
}

func metadataFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "document name")
	cmd.Flags().Uint64("size", 0, "document size in bytes")
	cmd.Flags().String("summary", "", "document summary")
	cmd.Flags().StringSlice("tags", nil, "document tags")
}

func metadataArgs(cmd *cobra.Command) (name string, size uint64, summary string, tags []string, err error) {
	if name, err = cmd.Flags().GetString("name"); err != nil {
		return "", 0, "", nil, errors.Wrap(err, "get name")
	}
	if size, err = cmd.Flags().GetUint64("size"); err != nil {
		return "", 0, "", nil, errors.Wrap(err, "get size")
	}
	if summary, err = cmd.Flags().GetString("summary"); err != nil {
		return "", 0, "", nil, errors.Wrap(err, "get summary")
	}
	if tags, err = cmd.Flags().GetStringSlice("tags"); err != nil {
		return "", 0, "", nil, errors.Wrap(err, "get tags")
	}

	return name, size, summary, tags, nil
}

var registrySubmitCMD = &cobra.Command{
	Use:   "submit",
	Short: "submit a new document entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := callerCtx(cmd.Context())
		if err != nil {
			return err
		}

		svc, err := newRegistrySvc(ctx)
		if err != nil {
			return err
		}

		name, size, summary, tags, err := metadataArgs(cmd)
		if err != nil {
			return err
		}

		id, err := svc.Submit(ctx, name, size, summary, tags)
		if err != nil {
			return errors.Wrap(err, "submit document")
		}

		return printJSON(map[string]uint64{"entry_id": id})
	},
}

var registryViewCMD = &cobra.Command{
	Use:   "view <entry_id>",
	Short: "view a document entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := callerCtx(cmd.Context())
		if err != nil {
			return err
		}

		svc, err := newRegistrySvc(ctx)
		if err != nil {
			return err
		}

		id, err := parseEntryID(args[0])
		if err != nil {
			return err
		}

		projection, err := cmd.Flags().GetString("projection")
		if err != nil {
			return errors.Wrap(err, "get projection")
		}

		var result any
		switch projection {
		case "", "full":
			result, err = svc.ViewFull(ctx, id)
		case "essentials":
			result, err = svc.FetchEssentials(ctx, id)
		case "identity":
			result, err = svc.FetchIdentity(ctx, id)
		case "summary":
			result, err = svc.ExtractSummary(ctx, id)
		case "profile":
			result, err = svc.GenerateCompleteProfile(ctx, id)
		default:
			return errors.Errorf("unknown projection %q", projection)
		}
		if err != nil {
			return errors.Wrapf(err, "view entry %d", id)
		}

		return printJSON(result)
	},
}

var registryReviseCMD = &cobra.Command{
	Use:   "revise <entry_id>",
	Short: "revise an existing document entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := callerCtx(cmd.Context())
		if err != nil {
			return err
		}

		svc, err := newRegistrySvc(ctx)
		if err != nil {
			return err
		}

		id, err := parseEntryID(args[0])
		if err != nil {
			return err
		}

		name, size, summary, tags, err := metadataArgs(cmd)
		if err != nil {
			return err
		}

		if err := svc.Revise(ctx, id, name, size, summary, tags); err != nil {
			return errors.Wrapf(err, "revise entry %d", id)
		}

		return printJSON(map[string]uint64{"entry_id": id})
	},
}

var registryWithdrawCMD = &cobra.Command{
	Use:   "withdraw <entry_id>",
	Short: "withdraw a document entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := callerCtx(cmd.Context())
		if err != nil {
			return err
		}

		svc, err := newRegistrySvc(ctx)
		if err != nil {
			return err
		}

		id, err := parseEntryID(args[0])
		if err != nil {
			return err
		}

		if err := svc.Withdraw(ctx, id); err != nil {
			return errors.Wrapf(err, "withdraw entry %d", id)
		}

		return printJSON(map[string]uint64{"entry_id": id})
	},
}

var registryValidateCMD = &cobra.Command{
	Use:   "validate",
	Short: "dry-run the submission validation rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := newRegistrySvc(ctx)
		if err != nil {
			return err
		}

		name, size, summary, tags, err := metadataArgs(cmd)
		if err != nil {
			return err
		}

		if err := svc.ValidateSubmissionParameters(ctx, name, size, summary, tags); err != nil {
			return errors.Wrap(err, "validate submission parameters")
		}

		return printJSON(map[string]bool{"valid": true})
	},
}

var registryGrantCMD = &cobra.Command{
	Use:   "grant <entry_id> <principal>",
	Short: "grant a principal read access to an entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := callerCtx(cmd.Context())
		if err != nil {
			return err
		}

		svc, err := newRegistrySvc(ctx)
		if err != nil {
			return err
		}

		id, err := parseEntryID(args[0])
		if err != nil {
			return err
		}

		if err := svc.Grant(ctx, id, args[1]); err != nil {
			return errors.Wrapf(err, "grant entry %d to %s", id, args[1])
		}

		return printJSON(map[string]bool{"granted": true})
	},
}

var registryRevokeCMD = &cobra.Command{
	Use:   "revoke <entry_id> <principal>",
	Short: "revoke a principal's read access to an entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := callerCtx(cmd.Context())
		if err != nil {
			return err
		}

		svc, err := newRegistrySvc(ctx)
		if err != nil {
			return err
		}

		id, err := parseEntryID(args[0])
		if err != nil {
			return err
		}

		if err := svc.Revoke(ctx, id, args[1]); err != nil {
			return errors.Wrapf(err, "revoke entry %d from %s", id, args[1])
		}

		return printJSON(map[string]bool{"granted": false})
	},
}

func init() {
	rootCMD.AddCommand(registryCMD)

	metadataFlags(registrySubmitCMD)
	metadataFlags(registryReviseCMD)
	metadataFlags(registryValidateCMD)
	registryViewCMD.Flags().String("projection", "full",
		"`full/essentials/identity/summary/profile`")

	registryCMD.AddCommand(
		registrySubmitCMD,
		registryViewCMD,
		registryReviseCMD,
		registryWithdrawCMD,
		registryValidateCMD,
		registryGrantCMD,
		registryRevokeCMD,
	)
}
