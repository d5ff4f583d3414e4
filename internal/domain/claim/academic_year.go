package claim

import (
	"fmt"
	"strconv"
	"strings"

	"claimflow/internal/common"
)

// AcademicYear is a "2024/2025" style year pair.
type AcademicYear string

func ParseAcademicYear(value string) (AcademicYear, error) {
	parts := strings.Split(strings.TrimSpace(value), "/")
	if len(parts) != 2 {
		return "", common.NewError(common.CodeValidation, "academic year must be in the 2024/2025 form", nil)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 4 {
		return "", common.NewError(common.CodeValidation, "academic year must be in the 2024/2025 form", nil)
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 4 {
		return "", common.NewError(common.CodeValidation, "academic year must be in the 2024/2025 form", nil)
	}
	if end != start+1 {
		return "", common.NewError(common.CodeValidation, "academic year must span consecutive years", nil)
	}
	return AcademicYear(fmt.Sprintf("%04d/%04d", start, end)), nil
}

func AcademicYearForDate(year int, month int) AcademicYear {
	// Academic years start in September.
	if month < 9 {
		year--
	}
	return AcademicYear(fmt.Sprintf("%04d/%04d", year, year+1))
}

func (y AcademicYear) Valid() bool {
	_, err := ParseAcademicYear(string(y))
	return err == nil
}

func (y AcademicYear) String() string {
	return string(y)
}
