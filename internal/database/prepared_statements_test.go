package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Sans session disponible, les constructeurs doivent retourner nil sans
// paniquer : c'est le contrat sur lequel reposent les fallbacks des appelants
// (login, cache promo, lecture d'inscription).
func TestQueryBuildersNilWithoutSession(t *testing.T) {
	t.Setenv("SCYLLA_KS_USERS_KEYSPACE", "")
	t.Setenv("SCYLLA_KS_SHOP_KEYSPACE", "")
	t.Setenv("SCYLLA_KS_LEARNING_KEYSPACE", "")

	assert.Nil(t, GetPreparedGetUserByEmail())
	assert.Nil(t, GetPreparedGetUserByID())
	assert.Nil(t, GetPreparedGetPromoByCode())
	assert.Nil(t, GetPreparedGetEnrollment())
}

// Chaque requête chaude filtre sur sa clé : un lookup promo doit lire par
// code, un lookup inscription par (student_id, course_id). Ces textes sont
// liés à chaque appel sur une requête neuve, jamais partagée.
func TestHotPathStatementsSelectByKey(t *testing.T) {
	assert.True(t, strings.Contains(cqlGetUserByEmail, "WHERE email = ?"))
	assert.True(t, strings.Contains(cqlGetUserByID, "WHERE user_id = ?"))
	assert.True(t, strings.Contains(cqlGetPromoByCode, "WHERE code = ?"))
	assert.True(t, strings.Contains(cqlGetEnrollment, "WHERE student_id = ? AND course_id = ?"))
}
