package database

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/lewisian8787/wrestleguess/models"
)

// decodePick round-trips a raw document through the stored pick shape
func decodePick(doc bson.M) (*models.Pick, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var stored pickDocument
	if err := bson.Unmarshal(raw, &stored); err != nil {
		return nil, err
	}
	return stored.toPick()
}

func TestPickDocumentDecoding(t *testing.T) {
	Convey("Given stored pick documents", t, func() {
		Convey("A version 2 document decodes confidence choices", func() {
			pick, err := decodePick(bson.M{
				"_id": "p1", "event_id": "e1", "user_id": "u1", "version": 2,
				"choices": bson.M{
					"m1": bson.M{"winner": "Cody Rhodes", "confidence": 60},
					"m2": bson.M{"winner": "Rhea Ripley", "confidence": 40},
				},
			})
			So(err, ShouldBeNil)
			So(pick.IsLegacy(), ShouldBeFalse)
			choices, ok := pick.ConfidenceChoices()
			So(ok, ShouldBeTrue)
			So(choices["m1"], ShouldResemble, models.Choice{Winner: "Cody Rhodes", Confidence: 60})
			So(pick.TotalConfidence(), ShouldEqual, 100)
		})

		Convey("A version 1 document decodes plain winners", func() {
			pick, err := decodePick(bson.M{
				"_id": "p2", "event_id": "e1", "user_id": "u2", "version": 1,
				"choices": bson.M{"m1": "Cody Rhodes"},
			})
			So(err, ShouldBeNil)
			So(pick.IsLegacy(), ShouldBeTrue)
			So(pick.LegacyChoices, ShouldResemble, map[string]string{"m1": "Cody Rhodes"})
			_, ok := pick.ConfidenceChoices()
			So(ok, ShouldBeFalse)
		})

		Convey("A document without a version is legacy even in the newer shape", func() {
			pick, err := decodePick(bson.M{
				"_id": "p3", "event_id": "e1", "user_id": "u3",
				"choices": bson.M{"m1": bson.M{"winner": "Cody Rhodes", "confidence": 100}},
			})
			So(err, ShouldBeNil)
			So(pick.IsLegacy(), ShouldBeTrue)
			So(pick.LegacyChoices["m1"], ShouldEqual, "Cody Rhodes")
		})

		Convey("A document without choices decodes empty", func() {
			pick, err := decodePick(bson.M{"_id": "p4", "event_id": "e1", "user_id": "u4", "version": 2})
			So(err, ShouldBeNil)
			So(pick.Choices, ShouldBeEmpty)
		})
	})

	Convey("Given a pick to upsert", t, func() {
		Convey("A confidence pick stores its total confidence", func() {
			pick := models.NewConfidencePick("e1", "u1", map[string]models.Choice{
				"m1": {Winner: "Cody Rhodes", Confidence: 70},
				"m2": {Winner: "Rhea Ripley", Confidence: 30},
			})
			update := pickUpsert(pick, "p1")
			set := update["$set"].(bson.M)
			So(set["total_confidence"], ShouldEqual, 100)
			So(set["version"], ShouldEqual, 2)
			So(update, ShouldNotContainKey, "$unset")
			So(update["$setOnInsert"].(bson.M)["_id"], ShouldEqual, "p1")
		})

		Convey("A legacy pick clears any total confidence", func() {
			pick := models.NewLegacyPick("e1", "u1", map[string]string{"m1": "Cody Rhodes"})
			update := pickUpsert(pick, "p2")
			So(update["$set"].(bson.M), ShouldNotContainKey, "total_confidence")
			So(update["$unset"], ShouldResemble, bson.M{"total_confidence": ""})
			So(update["$set"].(bson.M)["choices"], ShouldResemble, map[string]string{"m1": "Cody Rhodes"})
		})
	})

	Convey("Event ids with path characters are rejected as field keys", t, func() {
		So(validFieldKey("66f1c0ffee"), ShouldBeTrue)
		So(validFieldKey("a.b"), ShouldBeFalse)
		So(validFieldKey("$where"), ShouldBeFalse)
		So(validFieldKey(""), ShouldBeFalse)
	})
}
