package metadata

import (
	"go.uber.org/zap"

	monolens "github.com/monolens/monolens"
	"github.com/monolens/monolens/attr"
	"github.com/monolens/monolens/errors"
)

// decodeAttributes fetches and decodes every attribute record on a
// handle. Individual attributes that cannot produce any result are
// skipped with a debug log; partial decodes are kept. The owner string
// is log context only.
func decodeAttributes(acc monolens.Accessor, target monolens.Handle, owner string) ([]*attr.CustomAttribute, error) {
	records, err := acc.AttributeRecords(target)
	if err != nil {
		return nil, errors.ReadFault(errors.PhaseDecode, err, "attribute records of "+owner)
	}
	out := make([]*attr.CustomAttribute, 0, len(records))
	for _, rec := range records {
		if ca := decodeAttribute(acc, rec, owner); ca != nil {
			out = append(out, ca)
		}
	}
	return out, nil
}

func decodeAttribute(acc monolens.Accessor, rec monolens.AttributeRecord, owner string) *attr.CustomAttribute {
	log := Logger()
	if rec.Ctor.IsNil() {
		log.Debug("attribute record without constructor",
			zap.String("owner", owner))
		return nil
	}
	ctor, err := NewMethod(acc, rec.Ctor)
	if err != nil {
		return nil
	}

	sig, err := ctor.Signature()
	if err != nil {
		log.Debug("attribute constructor signature unresolved",
			zap.String("owner", owner),
			zap.Stringer("constructor", rec.Ctor),
			zap.Error(err))
		return nil
	}
	for i, p := range sig.Params {
		if p.Kind == 0 && !p.Array && p.Underlying == nil {
			log.Debug("constructor parameter type unresolved, reading as int32",
				zap.String("owner", owner),
				zap.Int("param", i))
		}
	}

	blob, err := acc.ReadBytes(rec.DataAddr, rec.DataLen)
	if err != nil {
		log.Debug("attribute blob unreadable",
			zap.String("owner", owner),
			zap.Uint64("addr", rec.DataAddr),
			zap.Uint32("len", rec.DataLen),
			zap.Error(err))
		return nil
	}

	resolver := imageEnumResolver{acc: acc, home: ctorImage(ctor)}
	ca, err := attr.Decode(blob, rec.DataLen, sig.Params, attr.DecodeOptions{Enums: resolver})
	if err != nil {
		log.Debug("attribute decode degraded",
			zap.String("owner", owner),
			zap.Stringer("constructor", rec.Ctor),
			zap.Error(err))
	}
	if ca == nil {
		return nil
	}

	if cls, err := ctor.Class(); err == nil {
		if name, err := cls.Name(); err == nil {
			ca.Name = name
		}
		if full, err := cls.FullName(); err == nil {
			ca.FullTypeName = full
		}
	}
	return ca
}

// ctorImage finds the image owning the constructor's class, for
// enum-name resolution locality. Nil when any link fails.
func ctorImage(ctor *Method) *Image {
	cls, err := ctor.Class()
	if err != nil {
		return nil
	}
	img, err := cls.Image()
	if err != nil {
		return nil
	}
	return img
}

// imageEnumResolver resolves enum type names in attribute blobs by
// class lookup: the constructor's own image first, then every loaded
// image.
type imageEnumResolver struct {
	acc  monolens.Accessor
	home *Image
}

func (r imageEnumResolver) EnumUnderlying(fullName string) (monolens.TypeRef, bool) {
	ns, name := splitTypeName(fullName)
	if r.home != nil {
		if t, ok := enumUnderlyingIn(r.home, ns, name); ok {
			return t, true
		}
	}
	assemblies, err := Assemblies(r.acc)
	if err != nil {
		Logger().Debug("assembly walk failed during enum resolution",
			zap.String("enum", fullName),
			zap.Error(err))
		return monolens.TypeRef{}, false
	}
	for _, asm := range assemblies {
		img, err := asm.Image()
		if err != nil {
			continue
		}
		if r.home != nil && img.handle == r.home.handle {
			continue
		}
		if t, ok := enumUnderlyingIn(img, ns, name); ok {
			return t, true
		}
	}
	return monolens.TypeRef{}, false
}

func enumUnderlyingIn(img *Image, ns, name string) (monolens.TypeRef, bool) {
	cls, ok := img.TryClass(ns, name)
	if !ok {
		return monolens.TypeRef{}, false
	}
	t, err := cls.EnumUnderlying()
	if err != nil {
		return monolens.TypeRef{}, false
	}
	return t, true
}
