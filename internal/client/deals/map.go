package deals

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/dealscout/dealscout/internal/resolve"
)

var _ resolve.MappingClient = (*Client)(nil)

// Map submits a batch of titles for identification. Items the aggregator
// could not place come back in Failed; everything else carries the
// aggregator's id for the title.
func (c *Client) Map(ctx context.Context, names []string) (resolve.MapResult, error) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("type")
	e.Str("app")
	e.FieldStart("names")
	e.ArrStart()
	for _, name := range names {
		e.Str(name)
	}
	e.ArrEnd()
	e.ObjEnd()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/game/map", bytes.NewReader(e.Bytes()))
	if err != nil {
		return resolve.MapResult{}, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.sign(req, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return resolve.MapResult{}, errors.Wrap(err, "map request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return resolve.MapResult{}, errors.Errorf("map request: unexpected status %d", resp.StatusCode)
	}

	res, err := decodeMapResult(jx.Decode(resp.Body, 4096))
	if err != nil {
		return resolve.MapResult{}, errors.Wrap(err, "decode map response")
	}
	return res, nil
}

func decodeMapResult(d *jx.Decoder) (resolve.MapResult, error) {
	var res resolve.MapResult
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				item, err := decodeMappedItem(d)
				if err != nil {
					return err
				}
				res.Items = append(res.Items, item)
				return nil
			})
		case "failedToMap":
			return d.Arr(func(d *jx.Decoder) error {
				name, err := d.Str()
				if err != nil {
					return err
				}
				res.Failed = append(res.Failed, name)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	return res, err
}

func decodeMappedItem(d *jx.Decoder) (resolve.MappedItem, error) {
	var item resolve.MappedItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			v, err := d.Str()
			if err != nil {
				return err
			}
			item.Name = v
			return nil
		case "foreign_id":
			id, err := decodeForeignID(d)
			if err != nil {
				return err
			}
			item.ID = id
			return nil
		case "cards":
			v, err := d.Bool()
			if err != nil {
				return err
			}
			item.TradingCards = &v
			return nil
		default:
			return d.Skip()
		}
	})
	return item, err
}

// decodeForeignID tolerates ids serialized as either a JSON number or a
// decimal string; the aggregator has shipped both.
func decodeForeignID(d *jx.Decoder) (int64, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return 0, err
		}
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "parse id %q", s)
		}
		return id, nil
	}
	return d.Int64()
}
