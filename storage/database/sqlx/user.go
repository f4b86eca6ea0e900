package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/courseapp/courseapp/core/user"
)

const pqUniqueViolation = "23505"

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	_, err := repo.db.NamedExec(`
		INSERT INTO users (id, name, email, role, password_hash, created_at, last_login)
		VALUES (:id, :name, :email, :role, :password_hash, :created_at, :last_login)`,
		usr,
	)
	if isUniqueViolation(err) {
		return user.User{}, user.ErrEmailExists
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) get(query string, arg interface{}) (user.User, error) {
	var usr user.User
	if err := repo.db.Get(&usr, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(id string) (user.User, error) {
	return repo.get(`SELECT * FROM users WHERE id = $1`, id)
}

func (repo *userRepository) GetUserByEmail(email string) (user.User, error) {
	return repo.get(`SELECT * FROM users WHERE email = $1`, email)
}

func (repo *userRepository) QueryAllUsers() ([]user.User, error) {
	users := make([]user.User, 0)
	if err := repo.db.Select(&users, `SELECT * FROM users ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	return users, nil
}

func (repo *userRepository) SetLastLogin(id string, at time.Time) error {
	res, err := repo.db.Exec(`UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return errors.Wrap(err, "updating last_login")
	}
	return expectOne(res, user.ErrNotFound)
}

func (repo *userRepository) SetPasswordHash(id string, hash []byte) error {
	res, err := repo.db.Exec(`UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return errors.Wrap(err, "updating password_hash")
	}
	return expectOne(res, user.ErrNotFound)
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == pqUniqueViolation
}

// expectOne returns notFound when the statement touched no row.
func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading rows affected")
	}
	if n == 0 {
		return notFound
	}
	return nil
}
