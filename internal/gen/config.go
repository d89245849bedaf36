// Package gen generates terminal configurations and synthetic terminal logs.
package gen

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	log "github.com/sirupsen/logrus"

	"tpccharness/api/reportapi"
	"tpccharness/pkg/prop"
)

// MinTransactionCount is the smallest mix that holds every transaction type
// at its minimum share.
const MinTransactionCount = 23

// TermControlCfg is the configuration a terminal executes.
type TermControlCfg struct {
	HomeWarehouseID   uint32              `yaml:"home_warehouse_id"`
	ThisTerminalID    uint32              `yaml:"this_terminal_id"`
	TransactionsToRun []TransactionParams `yaml:"transactions_to_run"`
}

type TransactionParams struct {
	Type        string `yaml:"type"`
	KeyTimeMS   uint32 `yaml:"key_time_ms"`
	ThinkTimeMS uint32 `yaml:"think_time_ms"`
	IsRbk       bool   `yaml:"is_rbk"`
}

type txProfile struct {
	share     float64 // of the total mix; NewOrder takes the remainder
	keyTime   time.Duration
	thinkTime time.Duration // mean
	rbk       float64
}

func profile(t reportapi.TxType) txProfile {
	switch t {
	case reportapi.NewOrder:
		return txProfile{keyTime: 18 * time.Second, thinkTime: 12 * time.Second, rbk: 0.01}
	case reportapi.Payment:
		return txProfile{share: 0.44, keyTime: 3 * time.Second, thinkTime: 12 * time.Second}
	case reportapi.OrderStatus:
		return txProfile{share: 0.04, keyTime: 2 * time.Second, thinkTime: 10 * time.Second}
	case reportapi.Delivery:
		return txProfile{share: 0.04, keyTime: 2 * time.Second, thinkTime: 5 * time.Second}
	case reportapi.StockLevel:
		return txProfile{share: 0.04, keyTime: 2 * time.Second, thinkTime: 5 * time.Second}
	default:
		panic(fmt.Errorf("unknown transaction type %v", t))
	}
}

// Breakdown splits count transactions over the transaction types. Every type
// but NewOrder gets at least one transaction.
func Breakdown(count uint32) (mix [reportapi.NumTxTypes]uint32) {
	var rest uint32
	for _, t := range reportapi.AllTxTypes {
		if t == reportapi.NewOrder {
			continue
		}
		n := max(1, uint32(float64(count)*profile(t).share))
		mix[t.Index()] = n
		rest += n
	}
	if rest < count {
		mix[reportapi.NewOrder.Index()] = count - rest
	}
	return mix
}

// TerminalConfig builds the transaction list of a single terminal in random
// order.
func TerminalConfig(r *rand.Rand, warehouse, terminal, count uint32) TermControlCfg {
	mix := Breakdown(count)
	txs := make([]TransactionParams, 0, count)
	for _, t := range reportapi.AllTxTypes {
		p := profile(t)
		think := prop.ExponentialDuration(p.thinkTime, 10*p.thinkTime)
		rbk := prop.Bool(p.rbk)
		for range mix[t.Index()] {
			txs = append(txs, TransactionParams{
				Type:        t.String(),
				KeyTimeMS:   uint32(p.keyTime.Milliseconds()),
				ThinkTimeMS: uint32(think.Rand(r).Milliseconds()),
				IsRbk:       rbk.Rand(r),
			})
		}
	}
	r.Shuffle(len(txs), func(i, j int) { txs[i], txs[j] = txs[j], txs[i] })

	return TermControlCfg{
		HomeWarehouseID:   warehouse,
		ThisTerminalID:    terminal,
		TransactionsToRun: txs,
	}
}

type ConfigOptions struct {
	Dir          string
	Warehouses   []uint32
	Terminals    uint32
	Transactions uint32
	Seed         uint64
	Now          time.Time
}

// WriteConfigs writes one configuration file per warehouse and terminal and
// returns their paths.
func WriteConfigs(opts ConfigOptions) ([]string, error) {
	if len(opts.Warehouses) == 0 {
		return nil, errors.New("warehouse id list is empty")
	}
	if opts.Terminals == 0 {
		return nil, errors.New("terminal count must be more than 0")
	}
	if opts.Transactions < MinTransactionCount {
		return nil, fmt.Errorf("transaction count must be at least %d", MinTransactionCount)
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create config directory %s: %w", opts.Dir, err)
	}

	r := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	ts := opts.Now.Format("20060102_150405")

	warehouses := slices.Clone(opts.Warehouses)
	slices.Sort(warehouses)
	warehouses = slices.Compact(warehouses)

	var files []string
	for _, w := range warehouses {
		for t := uint32(1); t <= opts.Terminals; t++ {
			cfg := TerminalConfig(r, w, t, opts.Transactions)
			contents, err := yaml.Marshal(cfg)
			if err != nil {
				return files, fmt.Errorf("encode terminal config: %w", err)
			}

			path := filepath.Join(opts.Dir, fmt.Sprintf("%s_W%d_T%d.cfg", ts, w, t))
			if err := os.WriteFile(path, contents, 0o644); err != nil {
				return files, fmt.Errorf("write config file %s: %w", path, err)
			}
			files = append(files, path)
		}
	}
	log.WithField("files", len(files)).Info("Terminal configurations written")
	return files, nil
}

// ParseIDList parses a single id, a comma separated list or an inclusive
// range such as 1..5.
func ParseIDList(s string) ([]uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	if strings.Contains(s, ",") {
		var ids []uint32
		for _, part := range strings.Split(s, ",") {
			id, err := parseID(part)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	if from, to, ok := strings.Cut(s, ".."); ok {
		if from == "" || to == "" {
			return nil, fmt.Errorf("range must have both ends defined %q", s)
		}
		start, err1 := parseID(from)
		end, err2 := parseID(to)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("range boundaries have an incorrect format %q", s)
		}
		if start > end {
			return nil, fmt.Errorf("range start is after its end %q", s)
		}
		ids := make([]uint32, 0, end-start+1)
		for id := start; ; id++ {
			ids = append(ids, id)
			if id == end {
				return ids, nil
			}
		}
	}

	id, err := parseID(s)
	if err != nil {
		return nil, err
	}
	return []uint32{id}, nil
}

func parseID(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("number has an incorrect format %q", s)
	}
	return uint32(v), nil
}
