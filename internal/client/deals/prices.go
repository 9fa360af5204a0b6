package deals

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/dealscout/dealscout/internal/check"
)

var _ check.PriceFetcher = (*Client)(nil)

// ErrRequestFailed is returned when the aggregator answers 200 but flags
// the payload as unsuccessful. The whole batch is unusable in that case.
var ErrRequestFailed = errors.New("aggregator reported failure")

// Prices fetches current listings for up to one batch of ids in a single
// request. An id the aggregator knows but has no listings for comes back
// as a nil entry; an id absent from the response was not recognized.
func (c *Client) Prices(ctx context.Context, ids []int64, country string) (check.PriceMap, error) {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = strconv.FormatInt(id, 10)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/game/prices", nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	q := req.URL.Query()
	q.Set("ids", strings.Join(strs, ","))
	req.URL.RawQuery = q.Encode()
	c.sign(req, country)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "prices request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("prices request: unexpected status %d", resp.StatusCode)
	}

	pm, err := decodePriceMap(jx.Decode(resp.Body, 4096))
	if err != nil {
		return nil, errors.Wrap(err, "decode prices response")
	}
	return pm, nil
}

func decodePriceMap(d *jx.Decoder) (check.PriceMap, error) {
	pm := make(check.PriceMap)
	var success bool
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "success":
			v, err := d.Bool()
			if err != nil {
				return err
			}
			success = v
			return nil
		case "data":
			if d.Next() == jx.Null {
				return d.Null()
			}
			return d.Obj(func(d *jx.Decoder, idKey string) error {
				id, err := strconv.ParseInt(idKey, 10, 64)
				if err != nil {
					return d.Skip()
				}
				info, err := decodeListing(d)
				if err != nil {
					return err
				}
				pm[id] = info
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	if !success {
		return nil, ErrRequestFailed
	}
	return pm, nil
}

// decodeListing returns nil for an explicit null entry, which means the
// aggregator knows the id but tracks no listings for it.
func decodeListing(d *jx.Decoder) (*check.PriceInfo, error) {
	if d.Next() == jx.Null {
		if err := d.Null(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	info := &check.PriceInfo{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "prices":
			return d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "currentRetail":
					return decodePrice(d, &info.Retail)
				case "currentKeyshops":
					return decodePrice(d, &info.Keyshops)
				case "currency":
					v, err := d.Str()
					if err != nil {
						return err
					}
					info.Currency = v
					return nil
				default:
					return d.Skip()
				}
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// decodePrice tolerates amounts serialized as either a decimal string or
// a JSON number. Null leaves the field unset.
func decodePrice(d *jx.Decoder, out *decimal.NullDecimal) error {
	var raw string
	switch d.Next() {
	case jx.Null:
		return d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return err
		}
		raw = string(n)
	default:
		return errors.Errorf("unexpected %s price", d.Next())
	}

	v, err := decimal.NewFromString(raw)
	if err != nil {
		return errors.Wrapf(err, "parse price %q", raw)
	}
	out.Decimal = v
	out.Valid = true
	return nil
}
