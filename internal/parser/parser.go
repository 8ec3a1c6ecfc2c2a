package parser

import (
	"fmt"

	"github.com/tatami-inc/eminem-sub000/internal/cursor"
	"github.com/tatami-inc/eminem-sub000/pkg/types"
)

const (
	// DefaultBlockSize is the minimum number of bytes handed to a worker in
	// parallel mode. Blocks are extended to the next newline.
	DefaultBlockSize = 1 << 20
)

// State is the position of a Parser in its lifecycle.
type State int

const (
	StateInitial State = iota
	StateBannerScanned
	StateSizeScanned
	StateBodyScanning
	StateBodyDone
)

// String returns a readable name for the state.
func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateBannerScanned:
		return "banner_scanned"
	case StateSizeScanned:
		return "size_scanned"
	case StateBodyScanning:
		return "body_scanning"
	case StateBodyDone:
		return "body_done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config contains configuration for the parser
type Config struct {
	Workers   int            // Number of goroutines parsing the body (default: 1, serial)
	BlockSize int            // Bytes per parallel block before newline alignment (default: 1 MiB)
	Factory   cursor.Factory // Builds per-block cursors (default: cursor.DefaultFactory)
}

// Stats describes the work done by a body scan.
type Stats struct {
	Entries uint64 // entries delivered to the callback
	Blocks  int    // blocks handed to workers; zero for a serial scan
	Bytes   int64  // body bytes read by the coordinator; zero for a serial scan
}

// Parser reads a Matrix Market stream: the banner, the size line and then a
// single pass over the data body.
type Parser struct {
	in     *input
	config Config

	state  State
	failed error

	desc  types.Descriptor
	dims  types.Dimensions
	stats Stats
}

// New creates a Parser reading from cur. A nil config parses serially.
func New(cur cursor.ByteCursor, config *Config) *Parser {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultBlockSize
	}
	if cfg.Factory == nil {
		cfg.Factory = cursor.DefaultFactory
	}

	return &Parser{
		in:     newInput(cur, 1),
		config: cfg,
	}
}

// State returns the current lifecycle state.
func (p *Parser) State() State {
	return p.state
}

// Line returns the 1-based line number of the next unread byte.
func (p *Parser) Line() uint64 {
	return p.in.line
}

// Stats returns counters for the body scan. It is only meaningful once a
// scan has returned.
func (p *Parser) Stats() Stats {
	return p.stats
}

func usageError(format string, args ...interface{}) error {
	return types.NewParseError(types.KindUsage, 0, format, args...)
}

// begin checks that the parser is in the wanted state before an operation.
func (p *Parser) begin(want State, op string) error {
	if p.failed != nil {
		return &types.ParseError{Kind: types.KindUsage, Message: op + " after a previous failure", Err: p.failed}
	}
	if p.state == want {
		return nil
	}

	switch {
	case p.state < want && want == StateBannerScanned:
		return usageError("%s requires the banner to be scanned first", op)
	case p.state < want:
		return usageError("%s requires the size line to be scanned first", op)
	case want == StateInitial:
		return usageError("%s: the banner has already been scanned", op)
	case want == StateBannerScanned:
		return usageError("%s: the size line has already been scanned", op)
	default:
		return usageError("%s: the body has already been scanned", op)
	}
}

// record remembers the first failure so later calls refuse to continue from a
// broken position.
func (p *Parser) record(err error) error {
	if err != nil && p.failed == nil {
		p.failed = err
	}
	return err
}

// ScanBanner parses the banner line.
func (p *Parser) ScanBanner() error {
	if err := p.begin(StateInitial, "scanning the banner"); err != nil {
		return err
	}
	desc, err := scanBanner(p.in)
	if err != nil {
		return p.record(err)
	}
	p.desc = desc
	p.state = StateBannerScanned
	return nil
}

// ScanSize parses the size line. The banner must have been scanned.
func (p *Parser) ScanSize() error {
	if err := p.begin(StateBannerScanned, "scanning the size line"); err != nil {
		return err
	}
	dims, err := scanSize(p.in, p.desc)
	if err != nil {
		return p.record(err)
	}
	p.dims = dims
	p.state = StateSizeScanned
	return nil
}

// ScanPreamble parses the banner and the size line.
func (p *Parser) ScanPreamble() error {
	if err := p.ScanBanner(); err != nil {
		return err
	}
	return p.ScanSize()
}

// Descriptor returns the parsed banner.
func (p *Parser) Descriptor() (types.Descriptor, error) {
	if p.state < StateBannerScanned {
		return types.Descriptor{}, usageError("the banner has not been scanned")
	}
	return p.desc, nil
}

// Dimensions returns the parsed size line.
func (p *Parser) Dimensions() (types.Dimensions, error) {
	if p.state < StateSizeScanned {
		return types.Dimensions{}, usageError("the size line has not been scanned")
	}
	return p.dims, nil
}

// Rows returns the number of rows.
func (p *Parser) Rows() (uint64, error) {
	dims, err := p.Dimensions()
	return dims.Rows, err
}

// Cols returns the number of columns.
func (p *Parser) Cols() (uint64, error) {
	dims, err := p.Dimensions()
	return dims.Cols, err
}

// Lines returns the number of data lines the body must contain.
func (p *Parser) Lines() (uint64, error) {
	dims, err := p.Dimensions()
	return dims.Lines, err
}
