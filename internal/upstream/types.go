package upstream

import (
	"fmt"
	"time"
)

// Person identifies one party of a locker pair.
type Person struct {
	StudentID  string `json:"studentId" validate:"required,student_id,max=16"`
	FamilyName string `json:"familyName" validate:"required,person_name,max=64"`
	GivenName  string `json:"givenName" validate:"required,person_name,max=64"`
}

// PartyPair is the main user and co-user of an application.
type PartyPair struct {
	MainUser Person `json:"mainUser" validate:"required"`
	CoUser   Person `json:"coUser" validate:"required"`
}

// Complete reports whether both parties carry a student id.
func (p PartyPair) Complete() bool {
	return p.MainUser.StudentID != "" && p.CoUser.StudentID != ""
}

// PairCheck is the pair-check reply: the verified pair plus the id that
// authorises the locker commit.
type PairCheck struct {
	Pair   PartyPair `json:"data"`
	AuthID string    `json:"authId"`
}

// AccessWindow bounds when circle registration routes are reachable.
type AccessWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether now lies in [Start, End], both ends inclusive.
func (w AccessWindow) Contains(now time.Time) bool {
	return !now.Before(w.Start) && !now.After(w.End)
}

// Valid reports whether both bounds are set and Start is not after End.
func (w AccessWindow) Valid() bool {
	return !w.Start.IsZero() && !w.End.IsZero() && !w.Start.After(w.End)
}

// LockerStatus is the availability of a single locker.
type LockerStatus string

const (
	LockerVacant    LockerStatus = "vacant"
	LockerOccupied  LockerStatus = "occupied"
	LockerOutOfWork LockerStatus = "out-of-work"
)

// Locker is one entry of the availability listing.
type Locker struct {
	LockerID string       `json:"lockerId"`
	Floor    int          `json:"floor"`
	Status   LockerStatus `json:"status"`
}

// LockerAssignment is the final commit of a locker to a verified pair.
type LockerAssignment struct {
	StudentID string
	LockerID  string
	AuthID    string
}

// Representative is a circle representative.
type Representative struct {
	StudentID   string `json:"studentId" validate:"required,student_id,max=16"`
	FamilyName  string `json:"familyName" validate:"required,person_name,max=64"`
	GivenName   string `json:"givenName" validate:"required,person_name,max=64"`
	Email       string `json:"email" validate:"required,email,max=255"`
	PhoneNumber string `json:"phoneNumber" validate:"required,max=32"`
}

// Organization is the circle being registered.
type Organization struct {
	OrganizationName  string `json:"organizationName" validate:"required,max=128"`
	OrganizationRuby  string `json:"organizationRuby" validate:"required,max=128"`
	OrganizationEmail string `json:"organizationEmail" validate:"required,email,max=255"`
}

// CircleRegistration is a new circle application.
type CircleRegistration struct {
	MainUser     Representative `json:"mainUser" validate:"required"`
	CoUser       Representative `json:"coUser" validate:"required"`
	Organization Organization   `json:"organization" validate:"required"`
	BDoc         string         `json:"bDoc" validate:"required,max=512"`
	CDoc         string         `json:"cDoc" validate:"required,max=512"`
	DDoc         string         `json:"dDoc" validate:"required,max=512"`
}

// CircleUpdate changes the representatives of an existing circle.
type CircleUpdate struct {
	OrganizationID    string         `json:"organizationId" validate:"required,organization_id"`
	MainUser          Representative `json:"mainUser" validate:"required"`
	CoUser            Representative `json:"coUser" validate:"required"`
	OrganizationEmail string         `json:"organizationEmail" validate:"required,email,max=255"`
	BDoc              string         `json:"bDoc" validate:"required,max=512"`
}

// OrganizationStatus is the public registration progress of a circle.
type OrganizationStatus struct {
	OrganizationID             string `json:"organizationId"`
	OrganizationName           string `json:"organizationName"`
	StatusAcceptance           string `json:"statusAcceptance"`
	StatusAuthentication       string `json:"statusAuthentication"`
	StatusFormConfirmation     string `json:"statusFormConfirmation"`
	StatusRegistrationComplete string `json:"statusRegistrationComplete"`
}

// CircleDetail is the admin view of a registered circle.
type CircleDetail struct {
	OrganizationID             string `json:"organizationId"`
	OrganizationName           string `json:"organizationName"`
	OrganizationEmail          string `json:"organizationEmail"`
	MainID                     string `json:"mainId"`
	MainFamilyName             string `json:"mainFamilyName"`
	MainGivenName              string `json:"mainGivenName"`
	MainEmail                  string `json:"mainEmail"`
	MainPhone                  string `json:"mainPhone"`
	CoID                       string `json:"coId"`
	CoFamilyName               string `json:"coFamilyName"`
	CoGivenName                string `json:"coGivenName"`
	CoEmail                    string `json:"coEmail"`
	CoPhone                    string `json:"coPhone"`
	BURL                       string `json:"bUrl"`
	CURL                       string `json:"cUrl"`
	DURL                       string `json:"dUrl"`
	StatusAcceptance           string `json:"statusAcceptance"`
	StatusAuthentication       string `json:"statusAuthentication"`
	StatusFormConfirmation     string `json:"statusFormConfirmation"`
	StatusRegistrationComplete string `json:"statusRegistrationComplete"`
}

// Credentials are the admin login form values.
type Credentials struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

// LockerUserQuery filters the admin locker user search.
type LockerUserQuery struct {
	Year       int
	Floor      *int
	FamilyName string
	GivenName  string
}

// LockerUser is one row of the admin locker user search.
type LockerUser struct {
	LockerID string `json:"lockerId"`
	Floor    int    `json:"floor"`
	MainUser Person `json:"mainUser"`
	CoUser   Person `json:"coUser"`
	Year     int    `json:"year"`
}

// Backup is a downloaded archive.
type Backup struct {
	Filename string
	Data     []byte
}

// backupPayload matches the backend reply, which encodes the archive as a
// JSON array of byte values.
type backupPayload struct {
	Filename string `json:"filename"`
	ZipData  []int  `json:"zipData"`
}

func (p backupPayload) decode() (Backup, error) {
	data := make([]byte, len(p.ZipData))
	for i, v := range p.ZipData {
		if v < 0 || v > 255 {
			return Backup{}, fmt.Errorf("upstream: archive byte %d out of range", i)
		}
		data[i] = byte(v)
	}
	return Backup{Filename: p.Filename, Data: data}, nil
}
