// Package scylla implémente les dépôts sur ScyllaDB. Toute règle d'unicité ou de
// transition passe par une écriture conditionnelle (LWT), jamais par un verrou applicatif.
package scylla

import (
	"context"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrContention : l'écriture conditionnelle a perdu trop de fois d'affilée
var ErrContention = errors.New("scylla: trop de conflits sur l'écriture conditionnelle")

const maxCASAttempts = 8

// serialRead lit l'état validé par les LWT (Paxos) plutôt qu'une réplique à la traîne
const serialRead = gocql.Consistency(gocql.LocalSerial)

// cas exécute une requête conditionnelle et indique si elle a été appliquée
func cas(ctx context.Context, q *gocql.Query) (bool, error) {
	applied, err := q.WithContext(ctx).MapScanCAS(make(map[string]interface{}))
	if err != nil {
		return false, errors.Wrap(err, "écriture conditionnelle")
	}
	return applied, nil
}

func decimalText(d decimal.Decimal) string { return d.String() }

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "montant illisible %q", s)
	}
	return d, nil
}
