/*
	Project: Masomo Live - real-time lecture rooms for Masomo (https://masomo.cd)
	Target: live classes of the École secondaires (Universities later..)
*/
package masomo

/*
TODO: webrtc relay: check that sender and target share a lecture before forwarding
TODO: rooms are per process: pub/sub between API instances before running more than one
TODO: admin: `lectures -id ID -status S` should also reach the in-memory room of a running API
TODO: attendance report per lecture from lecture_participants (joined_at / left_at)

FE:
	- Lecture view (3D classroom): positions, raised hands, questions, votes
	- Professor console: start | pause | resume | end, attendance check, exercises
	- subtitles: speech-to-text service posting to /v1/lectures/:id/subtitles
*/
