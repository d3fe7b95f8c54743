package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/joseph-ayodele/pallet-scanner/internal/common"
	"github.com/joseph-ayodele/pallet-scanner/internal/entity"
	"github.com/joseph-ayodele/pallet-scanner/internal/server"
)

func main() {
	os.Exit(run())
}

// palletlookup prints where each given pallet identifier was found.
func run() int {
	var (
		addr    = flag.String("addr", "", "palletd address; when empty the database is queried directly")
		runID   = flag.String("run", "", "list every record stored by this run instead (database only)")
		timeout = flag.Duration("timeout", 30*time.Second, "overall timeout")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: palletlookup [flags] <pallet-id>...\n       palletlookup -run <run-id>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	ids := flag.Args()
	v := common.NewValidator()
	if *runID != "" {
		v.Field("run", *runID, common.UUID)
	} else {
		v.Field("pallet_ids", ids, common.Required, common.PalletIDs(0))
	}
	if err := v.Error(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if *runID != "" && *addr != "" {
		fmt.Fprintln(os.Stderr, "Error: -run queries the database directly; drop -addr")
		return 2
	}

	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stderr, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var (
		recs []entity.PalletRecord
		err  error
	)
	if *addr != "" {
		conn, cerr := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if cerr != nil {
			logger.Error("failed to connect", "addr", *addr, "error", cerr)
			return 1
		}
		defer conn.Close()
		recs, err = server.NewClient(conn).Lookup(ctx, ids)
	} else {
		db, derr := common.InitDatabase(ctx, cfg, false, logger)
		if derr != nil {
			logger.Error("failed to initialize database", "error", derr)
			return 1
		}
		defer db.Cleanup()
		if *runID != "" {
			recs, err = db.Records.ListByRun(ctx, uuid.MustParse(*runID))
		} else {
			recs, err = db.Records.FindByPalletIDs(ctx, ids)
		}
	}
	if err != nil {
		logger.Error("lookup failed", "error", err)
		return 1
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PALLET ID\tDOCUMENT\tPAGE\tRUN\tSTORED AT")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.PalletID, r.DocumentName, r.PageNumber, r.RunID, r.CreatedAt.Format(time.RFC3339))
	}
	_ = tw.Flush()
	if len(recs) == 0 {
		fmt.Println("No records found")
	}
	return 0
}
