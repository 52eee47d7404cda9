package interceptor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/domain/entity"
	"github.com/LouYuanbo1/profilecrawler/internal/infra/crawler/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	searchURL   = "https://www.linkedin.com/voyager/api/search/dash/clusters?q=all&keywords=go"
	profileURL  = "https://www.linkedin.com/voyager/api/identity/dash/profiles?q=memberIdentity&memberIdentity=jane-doe"
	contactURL  = "https://www.linkedin.com/voyager/api/identity/profiles/jane-doe/profileContactInfo"
	skillsURL   = "https://www.linkedin.com/voyager/api/identity/profiles/jane-doe/skills"
	featuredURL = "https://www.linkedin.com/voyager/api/identity/dash/profileSkills?q=featuredBySection"
)

func respond(url, body string) *types.NetworkResponse {
	return &types.NetworkResponse{Url: url, Status: 200, Body: []byte(body)}
}

func TestFamilyOf(t *testing.T) {
	tests := []struct {
		url  string
		want Family
	}{
		{searchURL, FamilySearch},
		{"https://www.linkedin.com/voyager/api/search/blended?keywords=x", FamilySearch},
		{contactURL, FamilyContact},
		{skillsURL, FamilySkills},
		{featuredURL, FamilySkills},
		{profileURL, FamilyIdentity},
		{"https://www.linkedin.com/voyager/api/identity/profiles/jane/positions", FamilyIdentity},
		{"https://www.linkedin.com/voyager/api/identity/profiles/jane/educations", FamilyIdentity},
		{"https://www.linkedin.com/voyager/api/feed/updates", FamilyNone},
		{"https://www.linkedin.com/in/jane-doe/", FamilyNone},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, FamilyOf(tt.url))
		})
	}
}

func TestClassifyRejectsWithoutError(t *testing.T) {
	tests := []struct {
		name string
		resp *types.NetworkResponse
	}{
		{"nil", nil},
		{"outside namespace", respond("https://www.linkedin.com/feed/", `{"included":[]}`)},
		{"non 2xx", &types.NetworkResponse{Url: searchURL, Status: 429, Body: []byte(`{"included":[]}`)}},
		{"empty body", respond(searchURL, "")},
		{"non json", respond(searchURL, "<html>rate limited</html>")},
		{"json array", respond(profileURL, `[{"publicIdentifier":"x"}]`)},
		{"truncated", respond(profileURL, `{"included":[{"publicIdentifier":"x"`)},
		{"unrecognized shape", respond(profileURL, `{"elements":{"foo":1}}`)},
		{"included not array", respond(searchURL, `{"included":"nope"}`)},
		{"skills without names", respond(skillsURL, `{"included":[{"name":3}]}`)},
		{"contact unrecognized shape", respond(contactURL, `{"elements":{"foo":1}}`)},
		{"contact empty data", respond(contactURL, `{"data":{"emailAddress":null,"phoneNumbers":[]}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Empty(t, Classify(tt.resp))
			})
		})
	}
}

func TestClassifySearch(t *testing.T) {
	body := `{
		"included": [
			{"$type": "com.linkedin.voyager.identity.shared.MiniProfile", "publicIdentifier": "jane-doe",
			 "firstName": "Jane", "lastName": "Doe", "occupation": "Engineer", "locationName": "Paris"},
			{"$type": "com.linkedin.voyager.identity.shared.MiniProfile", "entityUrn": "urn:li:fs_miniProfile:john-roe",
			 "firstName": "John", "lastName": "", "headline": "Designer"},
			{"$type": "com.linkedin.voyager.search.SearchHit",
			 "hitInfo": {"com.linkedin.voyager.search.SearchProfile": {"miniProfile": {"publicIdentifier": "ann", "firstName": "Ann"}}}},
			{"$type": "com.linkedin.voyager.search.Other", "miniProfile": {"publicIdentifier": "jane-doe"}},
			{"$type": "com.linkedin.voyager.identity.shared.MiniProfile", "firstName": "NoID"}
		]
	}`
	frags := Classify(respond(searchURL, body))
	require.Len(t, frags, 3)

	first := frags[0].(*entity.SearchHit)
	assert.Equal(t, entity.SearchHit{
		PublicID:   "jane-doe",
		FullName:   "Jane Doe",
		Headline:   "Engineer",
		Location:   "Paris",
		ProfileURL: "https://www.linkedin.com/in/jane-doe/",
	}, *first)

	second := frags[1].(*entity.SearchHit)
	assert.Equal(t, "john-roe", second.PublicID)
	assert.Equal(t, "John", second.FullName)
	assert.Equal(t, "Designer", second.Headline)

	assert.Equal(t, "ann", frags[2].(*entity.SearchHit).PublicID)
}

func TestClassifyIdentity(t *testing.T) {
	body := `{
		"included": [
			{"$type": "com.linkedin.voyager.dash.identity.profile.Profile", "publicIdentifier": "jane-doe",
			 "firstName": "Jane", "lastName": "Doe", "headline": "Staff Engineer", "geoLocationName": "Lyon",
			 "industryName": "Software", "summary": "I build things.", "entityUrn": "urn:li:fsd_profile:ACoAABxxx",
			 "connections": {"paging": {"total": 512}}},
			{"$type": "com.linkedin.voyager.dash.identity.profile.Position", "entityUrn": "urn:li:fsd_position:(ACoAABxxx,1)",
			 "title": "Staff Engineer", "company": {"miniCompany": {"name": "Acme"}}, "locationName": "Lyon",
			 "timePeriod": {"startDate": {"month": 3, "year": 2021}}},
			{"$type": "com.linkedin.voyager.dash.identity.profile.Position", "entityUrn": "urn:li:fsd_position:(ACoAABxxx,2)",
			 "title": "Engineer", "companyName": "Globex",
			 "timePeriod": {"startDate": {"year": 2015}, "endDate": {"month": 2, "year": 2021}}},
			{"$type": "com.linkedin.voyager.dash.identity.profile.Education", "entityUrn": "urn:li:fsd_education:(ACoAABxxx,9)",
			 "school": {"name": "INSA"}, "degreeName": "MSc", "fieldOfStudy": "CS", "timePeriod": {}},
			{"$type": "com.linkedin.voyager.dash.identity.profile.Education", "fieldOfStudy": "Ignored"}
		]
	}`
	frags := Classify(respond(profileURL, body))
	require.Len(t, frags, 4)

	detail := frags[0].(*entity.ProfileDetail)
	assert.Equal(t, entity.ProfileDetail{
		PublicID:    "jane-doe",
		FullName:    "Jane Doe",
		Headline:    "Staff Engineer",
		Location:    "Lyon",
		Industry:    "Software",
		About:       "I build things.",
		Connections: "512",
		MemberURN:   "urn:li:fsd_profile:ACoAABxxx",
	}, *detail)

	current := frags[1].(*entity.Position)
	assert.Equal(t, "Acme", current.Company)
	assert.Equal(t, "3/2021 - Present", current.DateRange)
	assert.Equal(t, "urn:li:fsd_position:(ACoAABxxx,1)", current.OwnerURN)

	past := frags[2].(*entity.Position)
	assert.Equal(t, "Globex", past.Company)
	assert.Equal(t, "2015 - 2/2021", past.DateRange)

	edu := frags[3].(*entity.Education)
	assert.Equal(t, "INSA", edu.School)
	assert.Equal(t, "MSc", edu.Degree)
	assert.Equal(t, "CS", edu.FieldOfStudy)
	assert.Empty(t, edu.DateRange)
}

func TestClassifyDropsEmptyPositions(t *testing.T) {
	body := `{"included": [
		{"$type": "com.linkedin.voyager.dash.identity.profile.Position", "entityUrn": "urn:li:fsd_position:(ACoAABxxx,1)",
		 "timePeriod": {"startDate": {"year": 2020}}},
		{"$type": "com.linkedin.voyager.dash.identity.profile.Position", "entityUrn": "urn:li:fsd_position:(ACoAABxxx,2)",
		 "companyName": "Globex"}
	]}`
	frags := Classify(respond(profileURL, body))
	require.Len(t, frags, 1)
	assert.Equal(t, "Globex", frags[0].(*entity.Position).Company)
}

func TestClassifyConnectionsAsNumber(t *testing.T) {
	body := `{"included":[{"$type":"Profile","publicIdentifier":"x","connections":42}]}`
	frags := Classify(respond(profileURL, body))
	require.Len(t, frags, 1)
	assert.Equal(t, "42", frags[0].(*entity.ProfileDetail).Connections)
}

func TestClassifyContact(t *testing.T) {
	t.Run("wrapped object email", func(t *testing.T) {
		body := `{"data": {
			"emailAddress": {"emailAddress": "jane@example.com"},
			"phoneNumbers": [{"number": "+33 6 12 34 56 78", "type": "MOBILE"}],
			"websites": [{"url": "https://jane.dev"}],
			"twitterHandles": [{"name": "janedoe"}]
		}}`
		frags := Classify(respond(contactURL, body))
		require.Len(t, frags, 1)
		assert.Equal(t, entity.ContactInfo{
			PublicID: "jane-doe",
			Email:    "jane@example.com",
			Phone:    "+33 6 12 34 56 78",
			Website:  "https://jane.dev",
			Twitter:  "https://twitter.com/janedoe",
		}, *frags[0].(*entity.ContactInfo))
	})

	t.Run("root payload string email", func(t *testing.T) {
		body := `{"emailAddress": "john@example.com", "phoneNumbers": ["555-0100"]}`
		frags := Classify(respond("https://www.linkedin.com/voyager/api/graphql?queryId=contactInfo", body))
		require.Len(t, frags, 1)
		contact := frags[0].(*entity.ContactInfo)
		assert.Empty(t, contact.PublicID)
		assert.Equal(t, "john@example.com", contact.Email)
		assert.Equal(t, "555-0100", contact.Phone)
	})
}

func TestClassifySkills(t *testing.T) {
	body := `{"included":[{"name":"Go"},{"name":""},{"other":1},{"name":"Kubernetes"}]}`
	frags := Classify(respond(featuredURL, body))
	require.Len(t, frags, 1)
	assert.Equal(t, []string{"Go", "Kubernetes"}, frags[0].(*entity.SkillList).Names)
}

type recordingIngester struct {
	mu    sync.Mutex
	frags []entity.Fragment
}

func (r *recordingIngester) Ingest(frag entity.Fragment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frags = append(r.frags, frag)
}

func (r *recordingIngester) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frags)
}

func TestListen(t *testing.T) {
	respCh := make(chan *types.NetworkResponse, 4)
	sink := &recordingIngester{}

	respCh <- respond(skillsURL, `{"included":[{"name":"Go"}]}`)
	respCh <- respond(searchURL, "not json")
	respCh <- respond(contactURL, `{"emailAddress":"a@b.c"}`)
	close(respCh)

	done := make(chan struct{})
	go func() {
		Listen(context.Background(), respCh, sink)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after channel close")
	}
	assert.Equal(t, 2, sink.count())
}

func TestListenStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Listen(ctx, make(chan *types.NetworkResponse), &recordingIngester{})
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}
