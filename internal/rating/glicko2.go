package rating

import "math"

const (
	// GlickoScale converts between the 1500 scale and Glicko-2's internal scale.
	GlickoScale = 173.7178
	// DefaultRating is the rating of a new player.
	DefaultRating = 1500.0
	// DefaultRD is the rating deviation of a new player.
	DefaultRD = 350.0
	// DefaultVolatility is the volatility of a new player.
	DefaultVolatility = 0.06
	// Tau constrains the change in volatility over time.
	Tau = 0.5
	// Epsilon is the convergence tolerance of the volatility iteration.
	Epsilon = 0.000001
)

// Glicko2Rating is a rating in Glicko-2 space.
type Glicko2Rating struct {
	Mu    float64
	Phi   float64
	Sigma float64
}

// NewGlicko2Rating converts a rating and deviation on the 1500 scale.
func NewGlicko2Rating(rating, rd, sigma float64) Glicko2Rating {
	return Glicko2Rating{
		Mu:    (rating - DefaultRating) / GlickoScale,
		Phi:   rd / GlickoScale,
		Sigma: sigma,
	}
}

func (r Glicko2Rating) Rating() float64 { return r.Mu*GlickoScale + DefaultRating }
func (r Glicko2Rating) RD() float64     { return r.Phi * GlickoScale }

// outcome is one game against one opponent; score is 1, 0.5 or 0.
type outcome struct {
	opp   Glicko2Rating
	score float64
}

// update applies one Glicko-2 rating period. With no games only the deviation grows.
func update(r Glicko2Rating, games []outcome) Glicko2Rating {
	if len(games) == 0 {
		return Glicko2Rating{Mu: r.Mu, Phi: math.Sqrt(r.Phi*r.Phi + r.Sigma*r.Sigma), Sigma: r.Sigma}
	}

	var vInv, dSum float64
	for _, o := range games {
		gv := g(o.opp.Phi)
		e := expected(r.Mu, o.opp.Mu, o.opp.Phi)
		vInv += gv * gv * e * (1 - e)
		dSum += gv * (o.score - e)
	}
	v := 1 / vInv
	delta := v * dSum

	sigma := volatility(r.Phi, r.Sigma, v, delta)
	phiStar := math.Sqrt(r.Phi*r.Phi + sigma*sigma)
	phi := 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	return Glicko2Rating{
		Mu:    r.Mu + phi*phi*dSum,
		Phi:   phi,
		Sigma: sigma,
	}
}

// volatility is step 5 of Glickman's paper, the Illinois variant of regula falsi.
func volatility(phi, sigma, v, delta float64) float64 {
	a := math.Log(sigma * sigma)
	fn := func(x float64) float64 {
		ex := math.Exp(x)
		num := ex * (delta*delta - phi*phi - v - ex)
		den := 2 * (phi*phi + v + ex) * (phi*phi + v + ex)
		return num/den - (x-a)/(Tau*Tau)
	}

	A := a
	var B float64
	if delta*delta > phi*phi+v {
		B = math.Log(delta*delta - phi*phi - v)
	} else {
		k := 1.0
		for fn(a-k*Tau) < 0 {
			k++
		}
		B = a - k*Tau
	}

	fA, fB := fn(A), fn(B)
	for i := 0; i < 100 && math.Abs(B-A) > Epsilon; i++ {
		C := A + (A-B)*fA/(fB-fA)
		fC := fn(C)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}
	return math.Exp(A / 2)
}

func g(phi float64) float64 {
	return 1 / math.Sqrt(1+3*phi*phi/(math.Pi*math.Pi))
}

// expected is E(mu, mu_j, phi_j).
func expected(mu, oppMu, oppPhi float64) float64 {
	return 1 / (1 + math.Exp(-g(oppPhi)*(mu-oppMu)))
}
