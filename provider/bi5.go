package provider

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/tradesim/market"
	"github.com/ulikunitz/xz/lzma"
)

const bi5RecordSize = 20

// BI5Trades reads one hour of Dukascopy ticks from a .bi5 file. The file is
// LZMA compressed and holds 20 byte big-endian records:
//
//	ms since the hour, ask points, bid points, ask volume, bid volume
//
// Every tick becomes a trade at the mid price. A tick below the previous
// mid is a sell print, anything else a buy.
type BI5Trades struct {
	c     io.Closer
	r     io.Reader
	hour  time.Time
	point float64

	last float64
	seen bool
	n    int
}

// NewBI5Trades opens path. A zero hour is taken from the path, see BI5Hour.
// point is the price of one point, e.g. 0.00001 for EUR_USD.
func NewBI5Trades(path string, hour time.Time, point float64) (*BI5Trades, error) {
	if hour.IsZero() {
		h, err := BI5Hour(path)
		if err != nil {
			return nil, err
		}
		hour = h
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	p, err := NewBI5TradesReader(f, hour, point)
	if err != nil {
		f.Close()
		return nil, err
	}
	p.c = f
	return p, nil
}

// NewBI5TradesReader reads from r. Close does not close r. An empty r is
// an hour without ticks.
func NewBI5TradesReader(r io.Reader, hour time.Time, point float64) (*BI5Trades, error) {
	if !(point > 0) {
		return nil, fmt.Errorf("bi5: point %v must be positive", point)
	}
	p := &BI5Trades{hour: hour.UTC().Truncate(time.Hour), point: point}

	br := bufio.NewReader(r)
	if _, err := br.Peek(1); err == io.EOF {
		return p, nil
	}
	lr, err := lzma.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("bi5: %w", err)
	}
	p.r = lr
	return p, nil
}

func (p *BI5Trades) Close() error {
	if p.c != nil {
		return p.c.Close()
	}
	return nil
}

func (p *BI5Trades) Next() (market.Trade, bool, error) {
	if p.r == nil {
		return market.Trade{}, false, nil
	}
	var rec [bi5RecordSize]byte
	if _, err := io.ReadFull(p.r, rec[:]); err != nil {
		switch {
		case err == io.EOF:
			return market.Trade{}, false, nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			return market.Trade{}, false, fmt.Errorf("bi5: record %d truncated", p.n+1)
		}
		return market.Trade{}, false, fmt.Errorf("bi5: %w", err)
	}
	p.n++

	ms := binary.BigEndian.Uint32(rec[0:4])
	ask := float64(binary.BigEndian.Uint32(rec[4:8])) * p.point
	bid := float64(binary.BigEndian.Uint32(rec[8:12])) * p.point
	askVol := math.Float32frombits(binary.BigEndian.Uint32(rec[12:16]))
	bidVol := math.Float32frombits(binary.BigEndian.Uint32(rec[16:20]))

	mid := (ask + bid) / 2
	side := market.Buy
	if p.seen && mid < p.last {
		side = market.Sell
	}
	p.last, p.seen = mid, true

	amount := float64(askVol) + float64(bidVol)
	if !(amount > 0) {
		amount = 1
	}
	return market.Trade{
		Time:   p.hour.Add(time.Duration(ms) * time.Millisecond),
		Side:   side,
		Amount: amount,
		Price:  mid,
	}, true, nil
}

// BI5Hour recovers the hour from a downloaded tick file laid out as
// SYMBOL/YYYY/MM/DD/HHh_ticks.bi5.
func BI5Hour(path string) (time.Time, error) {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")
	if len(parts) < 4 {
		return time.Time{}, fmt.Errorf("bi5: cannot take the hour from %q", path)
	}
	parts = parts[len(parts)-4:]
	parts[3] = strings.TrimSuffix(parts[3], "h_ticks.bi5")

	var v [4]int
	for i, s := range parts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("bi5: cannot take the hour from %q", path)
		}
		v[i] = n
	}
	year, month, day, hour := v[0], v[1], v[2], v[3]
	if month < 1 || month > 12 || day < 1 || day > 31 || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("bi5: bad date in %q", path)
	}
	return time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC), nil
}
