package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/conduit/internal/database"
	"github.com/hitoshi/conduit/internal/model"
)

// PostgresPersonRepo はPostgreSQLを使用した人物リポジトリ。
type PostgresPersonRepo struct {
	db *sql.DB
}

// NewPostgresPersonRepo はPostgresPersonRepoを生成する。
func NewPostgresPersonRepo(db *sql.DB) *PostgresPersonRepo {
	return &PostgresPersonRepo{db: db}
}

const personColumns = `person_id, username, email, COALESCE(bio, ''), COALESCE(image, ''), hash, salt`

func scanPerson(row interface{ Scan(dest ...any) error }) (*model.Person, error) {
	p := &model.Person{}
	if err := row.Scan(&p.ID, &p.Username, &p.Email, &p.Bio, &p.Image, &p.Hash, &p.Salt); err != nil {
		return nil, err
	}
	return p, nil
}

// FindByID は指定IDの人物を取得する。見つからない場合はnilを返す。
func (r *PostgresPersonRepo) FindByID(ctx context.Context, id int64) (*model.Person, error) {
	exec := database.ExecutorFrom(ctx, r.db)
	p, err := scanPerson(exec.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE person_id = $1`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("人物の取得に失敗しました: %w", err)
	}
	return p, nil
}

// FindByUsername はユーザー名で人物を取得する。見つからない場合はnilを返す。
func (r *PostgresPersonRepo) FindByUsername(ctx context.Context, username string) (*model.Person, error) {
	exec := database.ExecutorFrom(ctx, r.db)
	p, err := scanPerson(exec.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE username = $1`, username,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザー名による人物の検索に失敗しました: %w", err)
	}
	return p, nil
}

// FindByIDs は指定IDの人物をまとめて取得する。
func (r *PostgresPersonRepo) FindByIDs(ctx context.Context, ids []int64) ([]*model.Person, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	exec := database.ExecutorFrom(ctx, r.db)
	rows, err := exec.QueryContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE person_id = ANY($1)`,
		pq.Int64Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("人物一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var persons []*model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("人物行の読み取りに失敗しました: %w", err)
		}
		persons = append(persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("人物一覧の走査に失敗しました: %w", err)
	}
	return persons, nil
}

// Update は人物のプロフィール項目を上書きする。対象が存在しない場合はエラーを返す。
func (r *PostgresPersonRepo) Update(ctx context.Context, person *model.Person) error {
	exec := database.ExecutorFrom(ctx, r.db)
	result, err := exec.ExecContext(ctx,
		`UPDATE persons
		 SET username = $2, email = $3, bio = NULLIF($4, ''), image = NULLIF($5, ''), updated_at = now()
		 WHERE person_id = $1`,
		person.ID, person.Username, person.Email, person.Bio, person.Image,
	)
	if err != nil {
		return fmt.Errorf("人物の更新に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("人物の更新件数の取得に失敗しました: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("人物の更新に失敗しました: person_id=%d が存在しません", person.ID)
	}
	return nil
}

var _ PersonRepository = (*PostgresPersonRepo)(nil)
