// This program performs administrative tasks against a node's chain storage.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/HamaKinger/blockchain/app/tooling/admin/commands"
	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
	"github.com/HamaKinger/blockchain/foundation/blockchain/database/storage"
	"github.com/HamaKinger/blockchain/foundation/blockchain/genesis"
	"github.com/HamaKinger/blockchain/foundation/logger"
	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args        conf.Args
		DBPath      string `conf:"default:zblock/miner1/"`
		DBEngine    string `conf:"default:file,help:file or bolt"`
		GenesisPath string `conf:"default:zblock/genesis.json"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "chain storage administration",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	gen, err := genesis.Load(cfg.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis: %w", err)
	}

	var store commands.Storage
	switch cfg.DBEngine {
	case "bolt":
		store, err = storage.NewBolt(cfg.DBPath)
	case "file":
		store, err = storage.NewFile(cfg.DBPath)
	default:
		err = fmt.Errorf("unknown engine %q", cfg.DBEngine)
	}
	if err != nil {
		return fmt.Errorf("unable to open storage: %w", err)
	}
	defer store.Close()

	ev := func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...))
	}

	return processCommands(cfg.Args, log, gen, database.New(store, ev), store)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, log *zap.SugaredLogger, gen genesis.Genesis, db *database.Database, store commands.Storage) error {
	switch args.Num(0) {
	case "blocks":
		if err := commands.Blocks(db); err != nil {
			return fmt.Errorf("listing blocks: %w", err)
		}

	case "verify":
		if err := commands.Verify(db, gen); err != nil {
			return fmt.Errorf("verifying chain: %w", err)
		}

	case "ledger":
		if err := commands.Ledger(db, args.Num(1)); err != nil {
			return fmt.Errorf("replaying ledger: %w", err)
		}

	case "rebuild":
		if err := commands.Rebuild(db, store); err != nil {
			return fmt.Errorf("rebuilding ledger: %w", err)
		}

	default:
		fmt.Println("blocks:          list the blocks in the chain")
		fmt.Println("verify:          validate every block against its predecessor")
		fmt.Println("ledger <addr>:   replay the chain and print balances")
		fmt.Println("rebuild:         replay the chain and overwrite the ledger snapshot")
		fmt.Println("provide a command to get more help.")
		return commands.ErrHelp
	}

	log.Infow("admin", "command", args.Num(0), "status", "complete")

	return nil
}
