//
// Copyright (c) 2019 harmony-one
// Copyright (c) 2023 Quilibrium, Inc.
//
// SPDX-License-Identifier: MIT
//

package iqc

import (
	"math/big"
)

var (
	bigZero  = big.NewInt(0)
	bigOne   = big.NewInt(1)
	bigTwo   = big.NewInt(2)
	bigFour  = big.NewInt(4)
	bigEight = big.NewInt(8)
)

// ClassGroup is a binary quadratic form (a, b, c) of discriminant
// b^2 - 4ac. Values are immutable: every operation returns a new form, and
// the discriminant is fixed at construction, so a form may be shared between
// goroutines.
type ClassGroup struct {
	a       *big.Int
	b       *big.Int
	c       *big.Int
	d       *big.Int
	reduced bool
}

func NewClassGroup(a, b, c *big.Int) *ClassGroup {
	d := new(big.Int).Mul(b, b)
	ac := new(big.Int).Mul(a, c)
	d.Sub(d, ac.Lsh(ac, 2))

	return newForm(a, b, c, d)
}

func newForm(a, b, c, d *big.Int) *ClassGroup {
	return &ClassGroup{a: a, b: b, c: c, d: d}
}

func NewClassGroupFromAbDiscriminant(a, b, discriminant *big.Int) *ClassGroup {
	//z = b*b-discriminant
	z := new(big.Int).Sub(new(big.Int).Mul(b, b), discriminant)

	//z = z // 4a
	c := FloorDivision(z, new(big.Int).Mul(a, bigFour))

	return newForm(a, b, c, discriminant)
}

// NewClassGroupFromBytesDiscriminant decodes a form serialized by Serialize.
// The encoding must carry a positive a, an integral c and be reduced,
// otherwise ErrMalformedElement is returned.
func NewClassGroupFromBytesDiscriminant(
	buf []byte,
	discriminant *big.Int,
) (*ClassGroup, error) {
	intSize := ElementIntSize(discriminant)

	if len(buf) != intSize*2 {
		return nil, ErrMalformedElement
	}

	a := decodeTwosComplement(buf[:intSize])
	b := decodeTwosComplement(buf[intSize:])
	if a.Sign() <= 0 {
		return nil, ErrMalformedElement
	}

	z := new(big.Int).Sub(new(big.Int).Mul(b, b), discriminant)
	fourA := new(big.Int).Mul(a, bigFour)
	c, r := new(big.Int).QuoRem(z, fourA, new(big.Int))
	if r.Sign() != 0 {
		return nil, ErrMalformedElement
	}

	form := newForm(a, b, c, discriminant)
	if !form.IsReduced() {
		return nil, ErrMalformedElement
	}

	form.reduced = true
	return form, nil
}

// ElementIntSize is the byte width of each serialized coefficient for the
// given discriminant, including room for the sign.
func ElementIntSize(discriminant *big.Int) int {
	return (discriminant.BitLen() + 16) >> 4
}

func IdentityForDiscriminant(d *big.Int) *ClassGroup {
	return NewClassGroupFromAbDiscriminant(big.NewInt(1), big.NewInt(1), d)
}

// GeneratorForDiscriminant returns the form (2, 1, c). It exists when 2
// splits, i.e. d = 1 (mod 8).
func GeneratorForDiscriminant(d *big.Int) *ClassGroup {
	return NewClassGroupFromAbDiscriminant(
		big.NewInt(2),
		big.NewInt(1),
		d,
	).Reduced()
}

func (group *ClassGroup) A() *big.Int { return new(big.Int).Set(group.a) }
func (group *ClassGroup) B() *big.Int { return new(big.Int).Set(group.b) }
func (group *ClassGroup) C() *big.Int { return new(big.Int).Set(group.c) }

// Discriminant returns b^2 - 4ac. The returned value must not be modified.
func (group *ClassGroup) Discriminant() *big.Int {
	return group.d
}

// Validate checks that the coefficients match the stored discriminant and
// describe a positive definite form.
func (group *ClassGroup) Validate() bool {
	if group.a.Sign() <= 0 || group.d.Sign() >= 0 {
		return false
	}

	d := new(big.Int).Mul(group.b, group.b)
	ac := new(big.Int).Mul(group.a, group.c)
	d.Sub(d, ac.Lsh(ac, 2))

	return d.Cmp(group.d) == 0
}

// IsReduced reports whether |b| <= a <= c, with b >= 0 when |b| = a or
// a = c.
func (group *ClassGroup) IsReduced() bool {
	negA := new(big.Int).Neg(group.a)
	if group.b.Cmp(negA) <= 0 || group.b.Cmp(group.a) > 0 {
		return false
	}

	cmp := group.a.Cmp(group.c)
	if cmp > 0 {
		return false
	}

	if cmp == 0 && group.b.Sign() < 0 {
		return false
	}

	return true
}

func (group *ClassGroup) Normalized() *ClassGroup {
	a := new(big.Int).Set(group.a)
	b := new(big.Int).Set(group.b)
	c := new(big.Int).Set(group.c)

	//if b > -a && b <= a:
	if (b.Cmp(new(big.Int).Neg(a)) == 1) && (b.Cmp(a) < 1) {
		return group
	}

	//r = (a - b) // (2 * a)
	r := new(big.Int).Sub(a, b)
	r = FloorDivision(r, new(big.Int).Mul(a, bigTwo))

	//b, c = b + 2 * r * a, a * r * r + b * r + c
	t := new(big.Int).Mul(bigTwo, r)
	t.Mul(t, a)
	oldB := new(big.Int).Set(b)
	b.Add(b, t)

	x := new(big.Int).Mul(a, r)
	x.Mul(x, r)
	y := new(big.Int).Mul(oldB, r)
	c.Add(c, x)
	c.Add(c, y)

	return newForm(a, b, c, group.d)
}

func (group *ClassGroup) Reduced() *ClassGroup {
	if group.reduced {
		return group
	}

	g := group.Normalized()
	a := new(big.Int).Set(g.a)
	b := new(big.Int).Set(g.b)
	c := new(big.Int).Set(g.c)

	//while a > c or (a == c and b < 0):
	for (a.Cmp(c) == 1) || ((a.Cmp(c) == 0) && (b.Sign() == -1)) {
		if c.Sign() <= 0 {
			invariant("form is not positive definite")
		}

		//s = (c + b) // (c + c)
		s := new(big.Int).Add(c, b)
		s = FloorDivision(s, new(big.Int).Add(c, c))

		//a, b, c = c, -b + 2 * s * c, c * s * s - b * s + a
		oldA := new(big.Int).Set(a)
		oldB := new(big.Int).Set(b)
		a = new(big.Int).Set(c)

		b.Neg(b)
		x := new(big.Int).Mul(bigTwo, s)
		x.Mul(x, c)
		b.Add(b, x)

		c.Mul(c, s)
		c.Mul(c, s)
		oldB.Mul(oldB, s)
		c.Sub(c, oldB)
		c.Add(c, oldA)
	}

	r := newForm(a, b, c, group.d).Normalized()
	r.reduced = true
	return r
}

func (group *ClassGroup) identity() *ClassGroup {
	return IdentityForDiscriminant(group.d)
}

// Inverse returns (a, -b, c), reduced.
func (group *ClassGroup) Inverse() *ClassGroup {
	return newForm(
		new(big.Int).Set(group.a),
		new(big.Int).Neg(group.b),
		new(big.Int).Set(group.c),
		group.d,
	).Reduced()
}

// Multiply composes two forms of the same discriminant. Composition of forms
// from different groups is an invariant violation and panics.
func (group *ClassGroup) Multiply(other *ClassGroup) *ClassGroup {
	if group.d.Cmp(other.d) != 0 {
		invariant("composition of forms with different discriminants")
	}

	//a1, b1, c1 = self.reduced()
	x := group.Reduced()

	//a2, b2, c2 = other.reduced()
	y := other.Reduced()

	//g = (b2 + b1) // 2
	g := new(big.Int).Add(x.b, y.b)
	g = FloorDivision(g, bigTwo)

	//h = (b2 - b1) // 2
	h := new(big.Int).Sub(y.b, x.b)
	h = FloorDivision(h, bigTwo)

	//w = mod.gcd(a1, a2, g)
	w1 := allInputValueGCD(y.a, g)
	w := allInputValueGCD(x.a, w1)

	//j = w
	j := new(big.Int).Set(w)
	//r = 0
	r := big.NewInt(0)
	//s = a1 // w
	s := FloorDivision(x.a, w)
	//t = a2 // w
	t := FloorDivision(y.a, w)
	//u = g // w
	u := FloorDivision(g, w)

	//k_temp, constant_factor = mod.solve_mod(t * u, h * u + s * c1, s * t)
	b := new(big.Int).Mul(h, u)
	sc := new(big.Int).Mul(s, x.c)
	b.Add(b, sc)
	kTemp, constantFactor, solvable := SolveMod(
		new(big.Int).Mul(t, u),
		b,
		new(big.Int).Mul(s, t),
	)
	if !solvable {
		invariant("composition congruence has no solution")
	}

	//n, constant_factor_2 = mod.solve_mod(t * constant_factor, h - t * k_temp, s)
	n, _, solvable := SolveMod(
		new(big.Int).Mul(t, constantFactor),
		new(big.Int).Sub(h, new(big.Int).Mul(t, kTemp)),
		s,
	)
	if !solvable {
		invariant("composition congruence has no solution")
	}

	//k = k_temp + constant_factor * n
	k := new(big.Int).Add(kTemp, new(big.Int).Mul(constantFactor, n))

	//l = (t * k - h) // s
	l := FloorDivision(new(big.Int).Sub(new(big.Int).Mul(t, k), h), s)

	//m = (t * u * k - h * u - s * c1) // (s * t)
	tuk := new(big.Int).Mul(t, u)
	tuk.Mul(tuk, k)

	hu := new(big.Int).Mul(h, u)

	tuk.Sub(tuk, hu)
	tuk.Sub(tuk, sc)

	st := new(big.Int).Mul(s, t)
	m := FloorDivision(tuk, st)

	//a3 = s * t - r * u
	ru := new(big.Int).Mul(r, u)
	a3 := st.Sub(st, ru)

	//b3 = (j * u + m * r) - (k * t + l * s)
	ju := new(big.Int).Mul(j, u)
	mr := new(big.Int).Mul(m, r)
	ju = ju.Add(ju, mr)

	kt := new(big.Int).Mul(k, t)
	ls := new(big.Int).Mul(l, s)
	kt = kt.Add(kt, ls)

	b3 := ju.Sub(ju, kt)

	//c3 = k * l - j * m
	kl := new(big.Int).Mul(k, l)
	jm := new(big.Int).Mul(j, m)

	c3 := kl.Sub(kl, jm)
	return newForm(a3, b3, c3, group.d).Reduced()
}

func (group *ClassGroup) Pow(n int64) *ClassGroup {
	x := group
	itemsProd := group.identity()

	for n > 0 {
		if n&1 == 1 {
			itemsProd = itemsProd.Multiply(x)
		}
		n >>= 1
		if n > 0 {
			x = x.Square()
		}
	}
	return itemsProd.Reduced()
}

func (group *ClassGroup) BigPow(n *big.Int) *ClassGroup {
	x := group
	itemsProd := group.identity()

	p := new(big.Int).Set(n)
	for p.Sign() > 0 {
		if p.Bit(0) == 1 {
			itemsProd = itemsProd.Multiply(x)
		}
		p.Rsh(p, 1)
		if p.Sign() > 0 {
			x = x.Square()
		}
	}
	return itemsProd.Reduced()
}

// Square computes the composition of the form with itself. It relies on
// gcd(a, b) = 1, which holds for every form of a prime discriminant.
func (group *ClassGroup) Square() *ClassGroup {
	u, _, solvable := SolveMod(group.b, group.c, group.a)
	if !solvable {
		invariant("squaring congruence has no solution")
	}

	//A = a^2
	A := new(big.Int).Mul(group.a, group.a)

	//B = b − 2aµ,
	au := new(big.Int).Mul(group.a, u)
	B := new(big.Int).Sub(group.b, new(big.Int).Mul(au, bigTwo))

	//C = µ ^ 2 - (bµ−c)//a
	C := new(big.Int).Mul(u, u)
	m := new(big.Int).Mul(group.b, u)
	m = new(big.Int).Sub(m, group.c)
	m = FloorDivision(m, group.a)
	C = new(big.Int).Sub(C, m)

	return newForm(A, B, C, group.d).Reduced()
}

// Serialize encodes a, b based on discriminant's size
// using one more byte for sign if nessesary
func (group *ClassGroup) Serialize() []byte {
	r := group.Reduced()
	intSize := ElementIntSize(group.d)

	buf := make([]byte, intSize*2)
	copy(buf[:intSize], signBitFill(encodeTwosComplement(r.a), intSize))
	copy(buf[intSize:], signBitFill(encodeTwosComplement(r.b), intSize))

	return buf
}

func (group *ClassGroup) Equal(other *ClassGroup) bool {
	if group.d.Cmp(other.d) != 0 {
		return false
	}

	g := group.Reduced()
	o := other.Reduced()

	return (g.a.Cmp(o.a) == 0 && g.b.Cmp(o.b) == 0 && g.c.Cmp(o.c) == 0)
}

func (group *ClassGroup) String() string {
	return "(" + group.a.String() + ", " + group.b.String() + ", " +
		group.c.String() + ")"
}

func FloorDivision(x, y *big.Int) *big.Int {
	var r big.Int
	q, _ := new(big.Int).QuoRem(x, y, &r)

	if (r.Sign() == 1 && y.Sign() == -1) || (r.Sign() == -1 && y.Sign() == 1) {
		q.Sub(q, bigOne)
	}

	return q
}

// allInputValueGCD returns gcd(|a|, |b|), with gcd(0, 0) = 0.
func allInputValueGCD(a, b *big.Int) (r *big.Int) {
	return new(big.Int).GCD(nil, nil, a, b)
}

// Solve ax == b mod m for x.
// Return s, t where x = s + k * t for integer k yields all solutions.
func SolveMod(a, b, m *big.Int) (s, t *big.Int, solvable bool) {
	//g, d, e = extended_gcd(a, m)
	d := new(big.Int)
	g := new(big.Int).GCD(d, nil, a, m)
	if g.Sign() == 0 {
		return nil, nil, false
	}

	//q, r = divmod(b, g)
	q, r := new(big.Int).DivMod(b, g, new(big.Int))

	//if r != 0:
	if r.Sign() != 0 {
		return nil, nil, false
	}

	//return (q * d) % m, m // g
	q.Mul(q, d)
	s = q.Mod(q, m)
	t = FloorDivision(m, g)
	return s, t, true
}
