package recordset

import (
	"context"
	"fmt"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// FaultNoUserImage is returned by account.getImage for accounts without a picture.
const FaultNoUserImage = "no_user_image"

// Delete removes a record on the server. It returns nil on success; failures
// can be told apart with errors.Is(err, ErrNotFound), errors.Is(err, ErrDenied)
// or errors.As(err, **TransportError).
func (s *Session) Delete(ctx context.Context, r *Record) error {
	id := r.ID()
	if id == nil {
		return fmt.Errorf("delete %s: record has no id: %w", r.kind.Name, ErrNotFound)
	}
	_, err := s.call(ctx, Request{
		Kind:      r.kind.Wire,
		Operation: OpDelete,
		Params:    map[string]any{"id": id},
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", r, err)
	}
	return nil
}

// AccountImage returns the picture URL of an account. Accounts without a
// picture yield "" with no error; every other fault is returned.
func (s *Session) AccountImage(ctx context.Context, account *Record) (string, error) {
	resp, err := s.call(ctx, Request{
		Kind:      "account",
		Operation: OpGetImage,
		Params:    map[string]any{"id": account.ID()},
	})
	if IsFaultCode(err, FaultNoUserImage) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return cast.ToString(resp["url"]), nil
}

// Memberships lists the workgroups an account belongs to.
func (s *Session) Memberships(ctx context.Context, account *Record) ([]*Record, error) {
	k, err := s.registry.Lookup("workgroup")
	if err != nil {
		return nil, err
	}
	resp, err := s.call(ctx, Request{
		Kind:      "account",
		Operation: OpListMemberships,
		Filter:    Filter{"member": account.ID()},
	})
	if err != nil {
		return nil, err
	}

	raw, _ := resp[k.Plural].([]any)
	out := make([]*Record, 0, len(raw))
	for i, v := range raw {
		row, ok := v.(map[string]any)
		if !ok {
			return nil, malformedf("%s[%d] is %T, not an object", k.Plural, i, v)
		}
		out = append(out, s.newRecord(k, row))
	}
	return out, nil
}

// AttachTimeclocks loads the timeclock of each element's covering member and
// stores it under "timeclock". It is meant for OpWhosOn shift collections.
func (s *Session) AttachTimeclocks(ctx context.Context, shifts *Collection) error {
	for shift, err := range shifts.All(ctx) {
		if err != nil {
			return err
		}
		member, _ := shift.Get("covering_member")
		id, ok := referenceID(member)
		if !ok {
			continue
		}
		tc, err := s.Record(ctx, "timeclock", id)
		if err != nil {
			s.logger.Debug("timeclock lookup failed",
				zap.Stringer("shift", shift),
				zap.Error(err),
			)
			return err
		}
		shift.Set("timeclock", tc)
	}
	return nil
}

// OfferedTrade returns the tradeboard entry offered for a shift. A shift
// with no offered trade yields an error matching ErrNotFound.
func (s *Session) OfferedTrade(ctx context.Context, shift *Record) (*Record, error) {
	k, err := s.registry.Lookup("trade")
	if err != nil {
		return nil, err
	}
	resp, err := s.call(ctx, Request{
		Kind:      shift.kind.Wire,
		Operation: OpGetOfferedTrade,
		Params:    map[string]any{"id": shift.ID()},
	})
	if err != nil {
		return nil, fmt.Errorf("offered trade of %s: %w", shift, err)
	}
	row, ok := resp[k.Wire].(map[string]any)
	if !ok || len(row) == 0 {
		return nil, fmt.Errorf("offered trade of %s: %w", shift, ErrNotFound)
	}
	return s.newRecord(k, row), nil
}

// ResolveProfileTypes replaces the raw profile_type of every hydrated
// covering member with the matching profileType record. All profile types
// are fetched in one request at the session's max batch. Run it after
// resolving covering_member against accounts; members still held as raw ids
// are skipped. Unknown profile types are set to nil.
func (s *Session) ResolveProfileTypes(ctx context.Context, shifts *Collection) error {
	var members []*Record
	for shift, err := range shifts.All(ctx) {
		if err != nil {
			return err
		}
		member, ok := shift.Get("covering_member")
		if !ok {
			continue
		}
		rec, ok := member.(*Record)
		if !ok || rec == nil {
			continue
		}
		v, _ := rec.Get("profile_type")
		if _, hydrated := v.(*Record); hydrated {
			continue
		}
		if _, ok := referenceID(v); ok {
			members = append(members, rec)
		}
	}
	if len(members) == 0 {
		return nil
	}

	profiles, err := s.Collection("profileType", WithBatch(s.maxBatch))
	if err != nil {
		return err
	}
	index := make(map[string]*Record)
	for p, err := range profiles.All(ctx) {
		if err != nil {
			return fmt.Errorf("resolve profile types: %w", err)
		}
		index[keyString(p.ID())] = p
	}

	unknown := 0
	for _, member := range members {
		v, _ := member.Get("profile_type")
		id, _ := referenceID(v)
		p, ok := index[keyString(id)]
		if !ok {
			unknown++
			member.Set("profile_type", nil)
			continue
		}
		member.Set("profile_type", p)
	}
	if unknown > 0 {
		s.logger.Warn("unknown profile types cleared", zap.Int("count", unknown))
	}
	return nil
}
