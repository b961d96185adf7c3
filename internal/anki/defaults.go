package anki

// defaultConf is the legacy collection configuration.
const defaultConf = `{"activeDecks": [1], "addToCur": true, "collapseTime": 1200, "curDeck": 1, "curModel": "1607392319", "dueCounts": true, "estTimes": true, "newBury": true, "newSpread": 0, "nextPos": 1, "sortBackwards": false, "sortType": "noteFld", "timeLim": 0}`

// defaultDeckConfig is the built-in deck configuration keyed "1".
const defaultDeckConfig = `{"autoplay": true, "id": 1, "lapse": {"delays": [10], "leechAction": 0, "leechFails": 8, "minInt": 1, "mult": 0}, "maxTaken": 60, "mod": 0, "name": "Default", "new": {"bury": true, "delays": [1, 10], "initialFactor": 2500, "ints": [1, 4, 7], "order": 1, "perDay": 20, "separate": true}, "replayq": true, "rev": {"bury": true, "ease4": 1.3, "fuzz": 0.05, "ivlFct": 1, "maxIvl": 36500, "minSpace": 1, "perDay": 100}, "timer": 0, "usn": 0}`

// emptyObject replaces the legacy blobs from schema version 16.
const emptyObject = "{}"

// tagsConfigKey is the config entry whose value becomes the tags blob.
const tagsConfigKey = "tags"

// normalDeckKind is the encoded kind of a normal deck using deck config 1:
// field 1 (normal) holding field 1 (config_id) = 1.
var normalDeckKind = []byte{0x0a, 0x02, 0x08, 0x01}

// defaultDeckName is the name of DefaultDeckID.
const defaultDeckName = "Default"
