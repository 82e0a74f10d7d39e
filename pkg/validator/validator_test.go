package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type party struct {
	StudentID  string `json:"studentId" validate:"required,student_id"`
	FamilyName string `json:"familyName" validate:"required,person_name"`
}

type update struct {
	OrganizationID string `json:"organizationId" validate:"required,organization_id"`
	Token          string `json:"token" validate:"omitempty,verification_token"`
}

func TestValidateStructUsesJSONFieldNames(t *testing.T) {
	err := ValidateStruct(party{StudentID: "12x4", FamilyName: ""})
	require.Error(t, err)

	failures, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, failures, 2)
	require.Equal(t, "studentId", failures[0].Field)
	require.Equal(t, "student_id", failures[0].Tag)
	require.Equal(t, "familyName", failures[1].Field)
	require.Equal(t, "required", failures[1].Tag)
}

func TestCustomRulesAcceptValidValues(t *testing.T) {
	require.NoError(t, ValidateStruct(party{StudentID: "24AB001", FamilyName: "山田"}))
	require.NoError(t, ValidateStruct(party{StudentID: "1234567", FamilyName: "Tanaka"}))
	require.NoError(t, ValidateStruct(update{OrganizationID: "C00012", Token: "abcdEFGH1234ijkl"}))
}

func TestOrganizationAndTokenRules(t *testing.T) {
	require.Error(t, ValidateStruct(update{OrganizationID: "X00012"}))
	require.Error(t, ValidateStruct(update{OrganizationID: "C00012", Token: "short"}))
}

func TestIsVerificationToken(t *testing.T) {
	require.True(t, IsVerificationToken("A1b2C3d4E5f6G7h8"))
	require.False(t, IsVerificationToken("A1b2C3d4E5f6G7h"))
	require.False(t, IsVerificationToken("A1b2C3d4E5f6G7h8x"))
	require.False(t, IsVerificationToken("A1b2C3d4E5f6G7h-"))
	require.False(t, IsVerificationToken(""))
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidationErrors{{Field: "lockerId", Tag: "max", Param: "8"}, {Field: "password", Tag: "required"}}
	require.Equal(t, "lockerId failed on max=8; password failed on required", errs.Error())
	require.Equal(t, "validation failed", ValidationErrors{}.Error())
}
