package api

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// envelope is the decoded form of the backend response wrapper
// {data, meta, error}. data and meta are captured raw so the payload schema
// stays with the caller; error is decoded eagerly because it decides whether
// the call failed at all.
type envelope struct {
	data jx.Raw
	meta jx.Raw
	err  *Error
}

// payload returns the bytes to unmarshal the typed result from. Bodies that
// arrive without the wrapper (or with a wrapper missing the data key) are
// treated as the payload itself, matching how lenient backends respond.
func (e envelope) payload(body []byte) []byte {
	if len(e.data) > 0 {
		return e.data
	}
	return body
}

// decodeEnvelope splits a response body into its envelope parts. A body that
// is not a JSON object is returned as-is with an empty envelope.
func decodeEnvelope(body []byte) (envelope, error) {
	var env envelope
	if len(body) == 0 {
		return env, nil
	}

	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		return env, nil
	}

	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "data":
			raw, err := d.Raw()
			if err != nil {
				return errors.Wrap(err, "data")
			}
			if raw.Type() != jx.Null {
				env.data = raw
			}
			return nil
		case "meta":
			raw, err := d.Raw()
			if err != nil {
				return errors.Wrap(err, "meta")
			}
			if raw.Type() != jx.Null {
				env.meta = raw
			}
			return nil
		case "error":
			if d.Next() == jx.Null {
				return d.Null()
			}
			apiErr, err := decodeErrorBranch(d)
			if err != nil {
				return errors.Wrap(err, "error")
			}
			env.err = apiErr
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return envelope{}, errors.Wrap(err, "decode envelope")
	}

	return env, nil
}

func decodeErrorBranch(d *jx.Decoder) (*Error, error) {
	apiErr := &Error{}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			if err != nil {
				return err
			}
			apiErr.Code = v
			return nil
		case "message":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			if err != nil {
				return err
			}
			apiErr.Message = v
			return nil
		case "fields":
			if d.Next() == jx.Null {
				return d.Null()
			}
			fields := make(map[string]string)
			if err := d.Obj(func(d *jx.Decoder, field string) error {
				switch d.Next() {
				case jx.String:
					v, err := d.Str()
					if err != nil {
						return err
					}
					fields[field] = v
					return nil
				case jx.Number:
					// Some backends report numeric detail, e.g.
					// available stock quantities.
					n, err := d.Num()
					if err != nil {
						return err
					}
					fields[field] = n.String()
					return nil
				default:
					return d.Skip()
				}
			}); err != nil {
				return err
			}
			if len(fields) > 0 {
				apiErr.Fields = fields
			}
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, err
	}
	return apiErr, nil
}
