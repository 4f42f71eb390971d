package repositories

import "invostock/internal/pkg/errors"

var (
	ErrNotFound      = errors.NotFound("Zapis nije pronađen")
	ErrEmailTaken    = errors.Conflict("Korisnik s tom e-mail adresom već postoji")
	ErrAlreadyMember = errors.Conflict("Korisnik je već član organizacije")
	ErrNotMember     = errors.NotFound("Korisnik nije član organizacije")
	ErrLastAdmin     = errors.Conflict("Posljednji administrator ne može napustiti organizaciju")
)
