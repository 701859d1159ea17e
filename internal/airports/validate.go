package airports

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var (
	icaoPattern   = regexp.MustCompile(`^[A-Z0-9]{4}$`)
	iataPattern   = regexp.MustCompile(`^[A-Z0-9]{3}$`)
	faaPattern    = regexp.MustCompile(`^[A-Z0-9]{3,4}$`)
	camIDPattern  = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)
	runwayPattern = regexp.MustCompile(`^(0?[1-9]|[12][0-9]|3[0-6])[LRC]?(/(0?[1-9]|[12][0-9]|3[0-6])[LRC]?)?$`)
)

func init() {
	mustRegister("icao_code", icaoPattern)
	mustRegister("iata_code", iataPattern)
	mustRegister("faa_code", faaPattern)
	mustRegister("cam_id", camIDPattern)
	mustRegister("runway_ident", runwayPattern)
}

func mustRegister(tag string, re *regexp.Regexp) {
	err := validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("registering %s validator: %v", tag, err))
	}
}

// ValidateAirport checks a record against the registry schema and returns
// user-facing error messages, one per problem. An empty slice means the
// record is valid.
func ValidateAirport(a *Airport) []string {
	var msgs []string

	if err := validate.Struct(a); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				msgs = append(msgs, fieldMessage(fe))
			}
		} else {
			msgs = append(msgs, err.Error())
		}
	}

	msgs = append(msgs, crossChecks(a)...)
	return msgs
}

// crossChecks covers rules the struct tags cannot express
func crossChecks(a *Airport) []string {
	var msgs []string

	switch a.WeatherSource.Type {
	case SourceMETAR:
		if a.WeatherSource.Station == "" && a.ICAO == "" {
			msgs = append(msgs, "A METAR weather source needs a station ID (or an ICAO code to default to)")
		}
	case SourceCustom:
		if a.WeatherSource.URL == "" {
			msgs = append(msgs, "A custom weather source needs a URL")
		}
	}

	if a.ICAO == "" && a.FAA == "" && a.IATA == "" {
		msgs = append(msgs, "At least one airport code (ICAO, FAA or IATA) is required")
	}

	seenCams := make(map[string]bool)
	for _, cam := range a.Webcams {
		if cam.ID == "" {
			continue
		}
		if seenCams[cam.ID] {
			msgs = append(msgs, fmt.Sprintf("Duplicate webcam ID %q", cam.ID))
		}
		seenCams[cam.ID] = true
	}

	seenRwys := make(map[string]bool)
	for _, rwy := range a.Runways {
		if rwy.Ident == "" {
			continue
		}
		if seenRwys[rwy.Ident] {
			msgs = append(msgs, fmt.Sprintf("Duplicate runway %q", rwy.Ident))
		}
		seenRwys[rwy.Ident] = true
	}

	return msgs
}

// fieldMessage maps a validator error to the message shown on the form
func fieldMessage(fe validator.FieldError) string {
	label := fieldLabel(fe)

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "required_if":
		if strings.HasPrefix(fe.Param(), "Mode pull") {
			return fmt.Sprintf("%s: pull cameras need a source URL", label)
		}
		if strings.HasPrefix(fe.Param(), "Mode push") {
			return fmt.Sprintf("%s: push cameras need a MAC address", label)
		}
		return fmt.Sprintf("%s is required", label)
	case "latitude":
		return "Latitude must be a decimal degree value between -90 and 90"
	case "longitude":
		return "Longitude must be a decimal degree value between -180 and 180"
	case "icao_code":
		return fmt.Sprintf("%s must be exactly 4 letters or digits (e.g. KSPB)", label)
	case "iata_code":
		return fmt.Sprintf("%s must be exactly 3 letters or digits", label)
	case "faa_code":
		return fmt.Sprintf("%s must be 3 or 4 letters or digits", label)
	case "mac":
		return fmt.Sprintf("%s is not a valid MAC address (expected aa:bb:cc:dd:ee:ff)", label)
	case "url":
		return fmt.Sprintf("%s must be a valid http(s) URL", label)
	case "timezone":
		return fmt.Sprintf("%s is not a recognized IANA timezone (e.g. America/Los_Angeles)", label)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "cam_id":
		return fmt.Sprintf("%s must be lowercase letters, digits, dashes or underscores", label)
	case "runway_ident":
		return fmt.Sprintf("%s must look like \"16/34\" or \"09L/27R\"", label)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", label, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", label, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", label, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", label, fe.Tag())
	}
}

// fieldLabel turns a struct namespace like Airport.Webcams[1].MAC into
// a label like "Webcam 2 MAC address"
func fieldLabel(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}

	ns = strings.NewReplacer(
		"WeatherSource.", "Weather source ",
		"Services.", "Services ",
	).Replace(ns)

	// Index nested slice entries for humans, 1-based
	for _, prefix := range []string{"Webcams", "Runways", "Frequencies", "Partners", "Links"} {
		if strings.HasPrefix(ns, prefix+"[") {
			end := strings.Index(ns, "]")
			if end > len(prefix)+1 {
				idx := ns[len(prefix)+1 : end]
				rest := strings.TrimPrefix(ns[end+1:], ".")
				singular := strings.TrimSuffix(prefix, "s")
				if prefix == "Frequencies" {
					singular = "Frequency"
				}
				return fmt.Sprintf("%s %s %s", singular, bumpIndex(idx), labelWord(rest))
			}
		}
	}

	return labelWord(ns)
}

func bumpIndex(s string) string {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return s
		}
		n = n*10 + int(r-'0')
	}
	return fmt.Sprintf("%d", n+1)
}

var labelOverrides = map[string]string{
	"Name":                   "Airport name",
	"MAC":                    "MAC address",
	"URL":                    "URL",
	"ICAO":                   "ICAO code",
	"IATA":                   "IATA code",
	"FAA":                    "FAA code",
	"MHz":                    "frequency (MHz)",
	"HeadingDegMag":          "magnetic heading",
	"LengthFt":               "length (ft)",
	"WidthFt":                "width (ft)",
	"ElevationFt":            "Elevation (ft)",
	"IntervalSeconds":        "capture interval",
	"WeatherSource":          "Weather source",
	"Weather source Type":    "Weather source type",
	"Weather source Station": "Weather source station ID",
}

func labelWord(field string) string {
	if v, ok := labelOverrides[field]; ok {
		return v
	}
	return field
}
