package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vaultline/vaultline/internal/apperr"
	"github.com/vaultline/vaultline/internal/logging"
)

func newTestService(t *testing.T) (*Service, User) {
	t.Helper()
	svc := NewService(NewMemoryRepository(), logging.Discard())
	user, err := svc.Register(context.Background(), NewUser{
		Email:     "RVSanchez255@Gmail.com",
		Phone:     "+1 (555) 123-4567",
		Password:  "Roberto99",
		FirstName: "Roberto",
		LastName:  "Sanchez",
		SSN:       "123-45-6789",
	})
	require.NoError(t, err)
	return svc, user
}

func strPtr(s string) *string { return &s }

func TestRegisterNormalizesKeys(t *testing.T) {
	_, user := newTestService(t)

	require.Equal(t, "rvsanchez255@gmail.com", user.Email)
	require.Equal(t, "+15551234567", user.Phone)
	require.Equal(t, RoleCustomer, user.Role)
	require.Equal(t, "USD", user.Currency)
	require.NotEqual(t, "Roberto99", user.PasswordHash)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(context.Background(), NewUser{Email: "rvsanchez255@gmail.com", Password: "another-pass"})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestAuthenticateByEmailOrPhone(t *testing.T) {
	svc, user := newTestService(t)
	ctx := context.Background()

	for _, identifier := range []string{"rvsanchez255@gmail.com", "RVSANCHEZ255@GMAIL.COM", "+1 555 123 4567"} {
		authed, err := svc.Authenticate(ctx, identifier, "Roberto99")
		require.NoError(t, err, identifier)
		require.Equal(t, user.ID, authed.ID)
	}
}

func TestAuthenticateEmailContainingPhoneDigits(t *testing.T) {
	svc := NewService(NewMemoryRepository(), logging.Discard())
	ctx := context.Background()

	alice, err := svc.Register(ctx, NewUser{Email: "alice@example.com", Phone: "5551234567", Password: "alice-pass"})
	require.NoError(t, err)
	bob, err := svc.Register(ctx, NewUser{Email: "bob5551234567@example.com", Password: "bob-password"})
	require.NoError(t, err)

	// Map iteration order varies between runs, so repeat the lookups.
	for i := 0; i < 25; i++ {
		authed, err := svc.Authenticate(ctx, "bob5551234567@example.com", "bob-password")
		require.NoError(t, err)
		require.Equal(t, bob.ID, authed.ID)

		authed, err = svc.Authenticate(ctx, "555-123-4567", "alice-pass")
		require.NoError(t, err)
		require.Equal(t, alice.ID, authed.ID)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+1 (555) 123-4567":         "+15551234567",
		"555.123.4567":              "5551234567",
		"bob5551234567@example.com": "",
		"555123456x":                "",
		"12345":                     "",
		"+":                         "",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizePhone(in), in)
	}
}

func TestAuthenticateFailuresShareMessage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, wrongPassword := svc.Authenticate(ctx, "rvsanchez255@gmail.com", "nope-nope")
	_, unknownUser := svc.Authenticate(ctx, "ghost@example.com", "Roberto99")

	require.Equal(t, apperr.KindInvalidCredentials, apperr.KindOf(wrongPassword))
	require.Equal(t, apperr.KindInvalidCredentials, apperr.KindOf(unknownUser))
	require.Equal(t, wrongPassword.Error(), unknownUser.Error())
	require.Equal(t, MsgInvalidLogin, unknownUser.Error())
}

func TestAuthenticateRequiresBothFields(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Authenticate(context.Background(), " ", "Roberto99")
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestGetByEmail(t *testing.T) {
	svc, user := newTestService(t)
	ctx := context.Background()

	got, err := svc.GetByEmail(ctx, "  RVSanchez255@gmail.com ")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	_, err = svc.GetByEmail(ctx, "")
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.GetByEmail(ctx, "missing@example.com")
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	updated, err := svc.UpdateProfile(ctx, "rvsanchez255@gmail.com", ProfileUpdate{
		City:            strPtr("Austin"),
		Occupation:      strPtr(" Engineer "),
		ProfileImageURL: strPtr("https://cdn.example.com/me.png"),
	})
	require.NoError(t, err)
	require.Equal(t, "Austin", updated.City)
	require.Equal(t, "Engineer", updated.Occupation)
	require.Equal(t, "Roberto", updated.FirstName)
	require.Equal(t, "***-**-6789", updated.MaskedSSN())

	reloaded, err := svc.GetByEmail(ctx, "rvsanchez255@gmail.com")
	require.NoError(t, err)
	require.Equal(t, "Austin", reloaded.City)
}

func TestUpdateProfileValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		email string
		upd   ProfileUpdate
	}{
		{"empty email", "", ProfileUpdate{City: strPtr("Austin")}},
		{"nothing to update", "rvsanchez255@gmail.com", ProfileUpdate{}},
		{"blank first name", "rvsanchez255@gmail.com", ProfileUpdate{FirstName: strPtr("  ")}},
		{"bad phone", "rvsanchez255@gmail.com", ProfileUpdate{Phone: strPtr("12")}},
		{"bad image", "rvsanchez255@gmail.com", ProfileUpdate{ProfileImageURL: strPtr("ftp://x/y.png")}},
		{"bad ssn", "rvsanchez255@gmail.com", ProfileUpdate{SSN: strPtr("12-3")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpdateProfile(ctx, tc.email, tc.upd)
			require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestUpdateProfilePhoneConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, NewUser{Email: "anthonygurrie@gmail.com", Phone: "+1 (929) 542-7566", Password: "securepass456"})
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, "anthonygurrie@gmail.com", ProfileUpdate{Phone: strPtr("+1 (555) 123-4567")})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUpdateAccount(t *testing.T) {
	svc, _ := newTestService(t)
	paid := true

	updated, err := svc.UpdateAccount(context.Background(), "rvsanchez255@gmail.com", AccountUpdate{
		KYCLevel:           strPtr("Tier 2"),
		HasPaidTransferFee: &paid,
	})
	require.NoError(t, err)
	require.Equal(t, "Tier 2", updated.KYCLevel)
	require.True(t, updated.HasPaidTransferFee)
}

func TestSetPasswordRevokesSessions(t *testing.T) {
	svc, user := newTestService(t)
	ctx := context.Background()

	require.Equal(t, apperr.KindValidation, apperr.KindOf(svc.SetPassword(ctx, user.Email, "short")))
	require.NoError(t, svc.SetPassword(ctx, user.Email, "a-brand-new-pass"))

	_, err := svc.Authenticate(ctx, user.Email, "Roberto99")
	require.Error(t, err)
	authed, err := svc.Authenticate(ctx, user.Email, "a-brand-new-pass")
	require.NoError(t, err)
	require.Equal(t, user.TokenVersion+1, authed.TokenVersion)
}

func TestRevokeSessions(t *testing.T) {
	svc, user := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.RevokeSessions(ctx, user.ID))
	got, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.TokenVersion)

	require.Equal(t, apperr.KindNotFound, apperr.KindOf(svc.RevokeSessions(ctx, "missing")))
}

func TestUpsertKeepsIdentity(t *testing.T) {
	svc, user := newTestService(t)

	again, err := svc.Upsert(context.Background(), NewUser{Email: user.Email, Phone: user.Phone, Password: "Roberto99", FirstName: "Rob"})
	require.NoError(t, err)
	require.Equal(t, user.ID, again.ID)
	require.Equal(t, "Rob", again.FirstName)
}
