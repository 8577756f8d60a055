package persistence

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/identity"
	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/member"
	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/upload"
	"github.com/ntsowef/eff-membership-system-sub020/pkg/composables"
)

const (
	memberLookupQuery = `
        SELECT
            m.id,
            m.id_number,
            m.firstname,
            m.surname,
            m.ward_code,
            m.voting_district_code,
            m.created_at,
            m.updated_at
        FROM members m
        WHERE m.id_number = ANY($1)`

	// 35 positional parameters; code-like columns carry explicit casts so
	// spreadsheet-sourced values never hit implicit-type mismatches.
	memberInsertQuery = `
        INSERT INTO members (
            id_number, firstname, surname, date_of_birth, age, gender, citizenship,
            email, cellphone, alt_phone,
            language, occupation, qualification,
            province_code, province_name, municipality_code, municipality_name,
            ward_code, voting_district_code, voting_station,
            address_line1, address_line2, city, postal_code,
            membership_type, date_joined, last_payment_date, expiry_date, expiry_system_calculated,
            subscription_type, subscription_amount, membership_status,
            payment_method, payment_reference, created_at
        ) VALUES (
            $1, $2, $3, $4::date, $5::int, $6, $7,
            $8, $9, $10,
            $11, $12, $13,
            $14::varchar, $15, $16::varchar, $17,
            $18::varchar, $19::varchar, $20,
            $21, $22, $23, $24::varchar,
            $25, $26::date, $27::date, $28::date, $29::boolean,
            $30, $31::numeric, $32,
            $33, $34, $35
        )
        RETURNING id`

	memberUpdateQuery = `
        UPDATE members SET
            firstname = COALESCE($2, firstname),
            surname = COALESCE($3, surname),
            email = COALESCE($4, email),
            cellphone = COALESCE($5, cellphone),
            alt_phone = COALESCE($6, alt_phone),
            language = COALESCE($7, language),
            occupation = COALESCE($8, occupation),
            qualification = COALESCE($9, qualification),
            province_code = COALESCE($10::varchar, province_code),
            province_name = COALESCE($11, province_name),
            municipality_code = COALESCE($12::varchar, municipality_code),
            municipality_name = COALESCE($13, municipality_name),
            ward_code = COALESCE($14::varchar, ward_code),
            voting_district_code = COALESCE($15::varchar, voting_district_code),
            voting_station = COALESCE($16, voting_station),
            address_line1 = COALESCE($17, address_line1),
            address_line2 = COALESCE($18, address_line2),
            city = COALESCE($19, city),
            postal_code = COALESCE($20::varchar, postal_code),
            membership_type = COALESCE($21, membership_type),
            date_joined = COALESCE($22::date, date_joined),
            last_payment_date = COALESCE($23::date, last_payment_date),
            expiry_date = COALESCE($24::date, expiry_date),
            subscription_type = COALESCE($25, subscription_type),
            subscription_amount = COALESCE($26::numeric, subscription_amount),
            payment_method = COALESCE($27, payment_method),
            payment_reference = COALESCE($28, payment_reference),
            updated_at = NOW()
        WHERE id = $1`
)

type PgMemberRepository struct{}

func NewMemberRepository() member.Repository {
	return &PgMemberRepository{}
}

// querier is satisfied by both pgx.Tx and *pgxpool.Pool.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *PgMemberRepository) conn(ctx context.Context) (querier, error) {
	if tx, err := composables.UseTx(ctx); err == nil {
		return tx, nil
	}
	return composables.UsePool(ctx)
}

func (r *PgMemberRepository) FindByIDNumbers(ctx context.Context, idNumbers []string) (map[string]upload.ExistingMatch, error) {
	matches := make(map[string]upload.ExistingMatch, len(idNumbers))
	if len(idNumbers) == 0 {
		return matches, nil
	}

	q, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, memberLookupQuery, idNumbers)
	if err != nil {
		return nil, errors.Wrap(err, "query members by id numbers")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id        int64
			idNumber  string
			firstname *string
			surname   *string
			ward      *string
			vd        *string
			createdAt time.Time
			updatedAt time.Time
		)
		if err := rows.Scan(&id, &idNumber, &firstname, &surname, &ward, &vd, &createdAt, &updatedAt); err != nil {
			return nil, errors.Wrap(err, "scan member row")
		}
		name := ""
		if firstname != nil {
			name = *firstname
		}
		if surname != nil {
			if name != "" {
				name += " "
			}
			name += *surname
		}
		matches[idNumber] = upload.ExistingMatch{
			MemberID:              id,
			CurrentName:           name,
			CurrentWard:           ward,
			CurrentVotingDistrict: vd,
			CreatedAt:             createdAt,
			UpdatedAt:             updatedAt,
		}
	}
	return matches, rows.Err()
}

func (r *PgMemberRepository) Insert(ctx context.Context, rec upload.Record, verification upload.VerificationResult) (int64, error) {
	q, err := r.conn(ctx)
	if err != nil {
		return 0, err
	}

	var id int64
	args := buildInsertArgs(rec, verification, time.Now())
	if err := q.QueryRow(ctx, memberInsertQuery, args...).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, errors.Wrap(err, "member with this ID number already exists")
		}
		return 0, err
	}
	return id, nil
}

func (r *PgMemberRepository) Update(ctx context.Context, memberID int64, rec upload.Record, verification upload.VerificationResult) error {
	q, err := r.conn(ctx)
	if err != nil {
		return err
	}

	args := buildUpdateArgs(memberID, rec, verification)
	tag, err := q.Exec(ctx, memberUpdateQuery, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return member.ErrNotFound
	}
	return nil
}

// buildInsertArgs produces the 35 positional parameters of the insert
// statement, in column order.
func buildInsertArgs(rec upload.Record, v upload.VerificationResult, now time.Time) []any {
	var age *int
	if rec.DateOfBirth != nil {
		a := identity.Age(*rec.DateOfBirth, now)
		age = &a
	}

	ward := rec.Raw.WardCode
	if ward == nil {
		ward = v.WardCode
	}

	return []any{
		rec.IDNumber,            // 1 id_number
		rec.Raw.FirstName,       // 2 firstname
		rec.Raw.Surname,         // 3 surname
		rec.DateOfBirth,         // 4 date_of_birth
		age,                     // 5 age
		string(rec.Gender),      // 6 gender
		string(rec.Citizenship), // 7 citizenship
		rec.Raw.Email,           // 8 email
		rec.Raw.Cellphone,       // 9 cellphone
		rec.Raw.AltPhone,        // 10 alt_phone
		rec.Raw.Language,        // 11 language
		rec.Raw.Occupation,      // 12 occupation
		rec.Raw.Qualification,   // 13 qualification
		rec.Raw.ProvinceCode,    // 14 province_code
		rec.Raw.ProvinceName,    // 15 province_name
		rec.Raw.MunicipalityCode, // 16 municipality_code
		rec.Raw.MunicipalityName, // 17 municipality_name
		ward,                     // 18 ward_code
		v.VotingDistrictCode,     // 19 voting_district_code
		rec.Raw.VotingStation,    // 20 voting_station
		rec.Raw.AddressLine1,     // 21 address_line1
		rec.Raw.AddressLine2,     // 22 address_line2
		rec.Raw.City,             // 23 city
		rec.Raw.PostalCode,       // 24 postal_code
		rec.Raw.MembershipType,   // 25 membership_type
		rec.Raw.DateJoined,       // 26 date_joined
		rec.Raw.LastPaymentDate,  // 27 last_payment_date
		rec.Raw.ExpiryDate,       // 28 expiry_date
		rec.Raw.ExpirySystemCalculated, // 29 expiry_system_calculated
		rec.Raw.SubscriptionType,       // 30 subscription_type
		rec.Raw.SubscriptionAmount,     // 31 subscription_amount
		member.StatusGoodStanding,      // 32 membership_status
		rec.Raw.PaymentMethod,          // 33 payment_method
		rec.Raw.PaymentReference,       // 34 payment_reference
		now,                            // 35 created_at
	}
}

func buildUpdateArgs(memberID int64, rec upload.Record, v upload.VerificationResult) []any {
	ward := rec.Raw.WardCode
	if ward == nil {
		ward = v.WardCode
	}
	vd := &v.VotingDistrictCode

	return []any{
		memberID,                   // 1
		rec.Raw.FirstName,          // 2
		rec.Raw.Surname,            // 3
		rec.Raw.Email,              // 4
		rec.Raw.Cellphone,          // 5
		rec.Raw.AltPhone,           // 6
		rec.Raw.Language,           // 7
		rec.Raw.Occupation,         // 8
		rec.Raw.Qualification,      // 9
		rec.Raw.ProvinceCode,       // 10
		rec.Raw.ProvinceName,       // 11
		rec.Raw.MunicipalityCode,   // 12
		rec.Raw.MunicipalityName,   // 13
		ward,                       // 14
		vd,                         // 15
		rec.Raw.VotingStation,      // 16
		rec.Raw.AddressLine1,       // 17
		rec.Raw.AddressLine2,       // 18
		rec.Raw.City,               // 19
		rec.Raw.PostalCode,         // 20
		rec.Raw.MembershipType,     // 21
		rec.Raw.DateJoined,         // 22
		rec.Raw.LastPaymentDate,    // 23
		rec.Raw.ExpiryDate,         // 24
		rec.Raw.SubscriptionType,   // 25
		rec.Raw.SubscriptionAmount, // 26
		rec.Raw.PaymentMethod,      // 27
		rec.Raw.PaymentReference,   // 28
	}
}
